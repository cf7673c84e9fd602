package errors

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAlreadyExists(t *testing.T) {
	msg := "lock sample-lock already exists"

	err := AlreadyExists(msg)

	if !IsAlreadyExists(err) {
		t.Errorf("expected AlreadyExistsError, got: %T", err)
	}

	c, _ := AsAlreadyExists(err)

	if c.HttpResponse().Status != http.StatusConflict {
		t.Errorf("expected http status 409, got: %d", c.HttpResponse().Status)
	}

	if c.Error() != msg {
		t.Errorf("expected %s, got: %s", msg, c.Error())
	}
}

func TestAlreadyExistsItem(t *testing.T) {
	err := AlreadyExists("lock ${%q} already exists", "sample-lock")

	c, ok := AsAlreadyExists(err)
	if !ok {
		t.Fatalf("expected AlreadyExistsError, got: %T", err)
	}

	if c.Error() != `lock "sample-lock" already exists` {
		t.Errorf("unexpected message: %s", c.Error())
	}

	if v, ok := c.Item.(string); !ok || v != "sample-lock" {
		t.Errorf("expected item sample-lock, got: %v", c.Item)
	}
}

func TestAlreadyExistsWrapped(t *testing.T) {
	err := fmt.Errorf("acquire: %w", AlreadyExists("lock ${a} already exists"))

	if !IsAlreadyExists(err) {
		t.Errorf("expected wrapped AlreadyExistsError, got: %v", err)
	}
	if IsNotFound(err) {
		t.Errorf("AlreadyExistsError must not match NotFound")
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("lock ${%q} not found", "sample-lock")

	if !IsNotFound(err) {
		t.Errorf("expected not found error, got: %s", err)
	}

	c, ok := AsNotFound(err)
	if !ok {
		t.Fatalf("expected not found error, got: %v", err)
	}

	if c.HttpResponse().Status != http.StatusNotFound {
		t.Errorf("expected http status 404, got: %d", c.HttpResponse().Status)
	}

	if c.Item != "sample-lock" {
		t.Errorf("expected item sample-lock, got: %v", c.Item)
	}
}

type pathNotFoundError struct {
	NotFoundError
	Path string `json:"path"`
}

func (e *pathNotFoundError) Error() string {
	return fmt.Sprintf("path %s not found", e.Path)
}

func TestNotFoundEmbedded(t *testing.T) {
	err := &pathNotFoundError{Path: "/var/lock"}

	if !IsNotFound(err) {
		t.Errorf("expected path not found error, got: %s", err)
	}

	var perr *pathNotFoundError
	if ok := errors.As(err, &perr); !ok || perr.Path != "/var/lock" {
		t.Errorf("expected /var/lock, got: %v", perr)
	}
}

func TestLockingFailure(t *testing.T) {
	cause := errors.New("resource temporarily unavailable")
	err := LockingFailure(cause, "error locking ${%q}", "sample-lock")

	if !IsLockingFailure(err) {
		t.Errorf("expected locking error, got: %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be unwrapped")
	}
	if err.Error() != `error locking "sample-lock": resource temporarily unavailable` {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if HttpStatus(err) != http.StatusLocked {
		t.Errorf("expected http status 423, got: %d", HttpStatus(err))
	}
}

func TestInvalidConfiguration(t *testing.T) {
	err := InvalidConfiguration(nil, "directory %q is not writable", "/root")

	if !IsInvalidConfiguration(err) {
		t.Errorf("expected invalid configuration error, got: %T", err)
	}
	if err.Error() != `directory "/root" is not writable` {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if err.Unwrap() != nil {
		t.Errorf("expected nil cause")
	}
}

func TestValidation(t *testing.T) {
	err := Validation("invalid config").
		AddError(errors.New("driver is required")).
		AddError(nil).
		AddError(errors.New("dir is required"))

	if !IsValidation(err) {
		t.Errorf("expected validation error, got: %s", err)
	}
	if len(err.Errors) != 2 {
		t.Errorf("expected 2 errors, got: %d", len(err.Errors))
	}
	if err.Error() != "invalid config: driver is required; dir is required" {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if err.HttpResponse().Status != http.StatusBadRequest {
		t.Errorf("expected http status 400, got: %d", err.HttpResponse().Status)
	}

	var empty *ValidationError
	if empty.AsError() != nil {
		t.Errorf("nil validation error should be nil")
	}
}

func TestResponse(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   Code
	}{
		{"already exists", AlreadyExists("exists"), http.StatusConflict, CodeAlreadyExists},
		{"not found", NotFound("missing"), http.StatusNotFound, CodeNotFound},
		{"locking", LockingFailure(nil, "busy"), http.StatusLocked, CodeLockingFailure},
		{"validation", Validation("bad"), http.StatusBadRequest, CodeInvalidArgument},
		{"unknown", io.ErrUnexpectedEOF, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := Response(rec, tt.err); err != nil {
				t.Fatalf("Response() error = %v", err)
			}
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got: %d", tt.status, rec.Code)
			}

			var body HttpResponse
			if err := json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.code {
				t.Errorf("expected code %s, got: %s", tt.code, body.Code)
			}
		})
	}
}
