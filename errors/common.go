package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Code string

const (
	CodeAlreadyExists        Code = "already_exists"
	CodeNotFound             Code = "not_found"
	CodeLockingFailure       Code = "locking_failure"
	CodeInvalidConfiguration Code = "invalid_configuration"
	CodeInvalidArgument      Code = "invalid"
	CodeInternal             Code = "internal"
)

type Base struct {
	// Msg contains user friendly error.
	Msg       string    `json:"message"`
	Code      Code      `json:"code,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func newBasef(code Code, format string, args ...any) Base {
	return Base{
		Msg:       fmt.Sprintf(format, args...),
		Code:      code,
		Timestamp: time.Now(),
	}
}

// AlreadyExistsError is returned when a lock key is already occupied.
type AlreadyExistsError struct {
	Base
	// Item is the conflicting key.
	Item any `json:"item,omitempty"`
}

// AlreadyExists is a helper function to return an AlreadyExistsError.
// In format argument Item can be specified with ${} specifier
// for example:
//   - errors.AlreadyExists("lock ${sample-lock} already exists")
//   - errors.AlreadyExists("lock ${%q} already exists", "sample-lock")
//
// the value of Item in AlreadyExistsError will be set to "sample-lock".
func AlreadyExists(format string, args ...any) *AlreadyExistsError {
	format, item := parse(format, args...)
	return &AlreadyExistsError{
		Item: item,
		Base: newBasef(CodeAlreadyExists, format, args...),
	}
}

// IsAlreadyExists checks if err is already exists error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, &AlreadyExistsError{})
}

// AsAlreadyExists return err as AlreadyExistsError or nil if it is not
// successfull.
func AsAlreadyExists(err error) (aerr *AlreadyExistsError, b bool) {
	if errors.As(err, &aerr) {
		return aerr, true
	}
	return nil, false
}

// Error interface method.
func (e *AlreadyExistsError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Item != nil {
		return fmt.Sprintf("%v already exists", e.Item)
	}
	return "resource already exists"
}

// HttpResponse returns http response for AlreadyExistsError.
func (e *AlreadyExistsError) HttpResponse() HttpResponse {
	return HttpResponse{
		Base:   e.Base,
		Status: http.StatusConflict,
	}
}

// Is checks if err is AlreadyExistsError.
func (e *AlreadyExistsError) Is(t error) bool {
	_, ok := t.(*AlreadyExistsError)
	return ok
}

type NotFoundError struct {
	Base
	Item any `json:"item,omitempty"`
}

// NotFound is a helper function to return an NotFoundError.
// Item can be marked with the ${} specifier, see AlreadyExists.
func NotFound(format string, args ...any) *NotFoundError {
	format, item := parse(format, args...)
	return &NotFoundError{
		Item: item,
		Base: newBasef(CodeNotFound, format, args...),
	}
}

// IsNotFound checks if err is not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, &NotFoundError{})
}

// AsNotFound return err as NotFoundError or nil if it is not
// successfull.
func AsNotFound(err error) (nerr *NotFoundError, b bool) {
	if errors.As(err, &nerr) {
		return nerr, true
	}
	return nil, false
}

// Error interface method.
func (e *NotFoundError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Item != nil {
		return fmt.Sprintf("%v not found", e.Item)
	}
	return "resource not found"
}

// HttpResponse returns http response for NotFoundError.
func (e *NotFoundError) HttpResponse() HttpResponse {
	return HttpResponse{
		Base:   e.Base,
		Status: http.StatusNotFound,
	}
}

func (e *NotFoundError) Is(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// LockingError is returned when a store cannot get the exclusive access
// it needs to write a record safely.
type LockingError struct {
	Base
	Item any   `json:"item,omitempty"`
	Err  error `json:"-"`
}

// LockingFailure is a helper function to return a LockingError caused by err.
func LockingFailure(err error, format string, args ...any) *LockingError {
	format, item := parse(format, args...)
	return &LockingError{
		Item: item,
		Err:  err,
		Base: newBasef(CodeLockingFailure, format, args...),
	}
}

// IsLockingFailure checks if err is locking error.
func IsLockingFailure(err error) bool {
	return errors.Is(err, &LockingError{})
}

func AsLockingFailure(err error) (lerr *LockingError, b bool) {
	if errors.As(err, &lerr) {
		return lerr, true
	}
	return nil, false
}

func (e *LockingError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "locking failure"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *LockingError) Unwrap() error {
	return e.Err
}

// HttpResponse returns http response for LockingError.
func (e *LockingError) HttpResponse() HttpResponse {
	return HttpResponse{
		Base:   e.Base,
		Status: http.StatusLocked,
	}
}

func (e *LockingError) Is(err error) bool {
	_, ok := err.(*LockingError)
	return ok
}

// InvalidConfigurationError is returned by store constructors when the
// target directory or connection is unusable.
type InvalidConfigurationError struct {
	Base
	Err error `json:"-"`
}

// InvalidConfiguration is a helper function to return an InvalidConfigurationError.
func InvalidConfiguration(err error, format string, args ...any) *InvalidConfigurationError {
	return &InvalidConfigurationError{
		Err:  err,
		Base: newBasef(CodeInvalidConfiguration, format, args...),
	}
}

// IsInvalidConfiguration checks if err is invalid configuration error.
func IsInvalidConfiguration(err error) bool {
	return errors.Is(err, &InvalidConfigurationError{})
}

func AsInvalidConfiguration(err error) (cerr *InvalidConfigurationError, b bool) {
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}

func (e *InvalidConfigurationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "invalid configuration"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}

// HttpResponse returns http response for InvalidConfigurationError.
func (e *InvalidConfigurationError) HttpResponse() HttpResponse {
	return HttpResponse{
		Base:   e.Base,
		Status: http.StatusInternalServerError,
	}
}

func (e *InvalidConfigurationError) Is(err error) bool {
	_, ok := err.(*InvalidConfigurationError)
	return ok
}

type ValidationError struct {
	Base
	Errors []error `json:"-"`
}

// Validation is a helper function to return an invalid argument Error.
func Validation(format string, args ...any) *ValidationError {
	return &ValidationError{
		Base: newBasef(CodeInvalidArgument, format, args...),
	}
}

// IsValidation checks if err is invalid argument error.
func IsValidation(err error) bool {
	return errors.Is(err, &ValidationError{})
}

func AsValidation(err error) (verr *ValidationError, b bool) {
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

func (e *ValidationError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "validation error"
	}
	if len(e.Errors) == 0 {
		return msg
	}
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = err.Error()
	}
	return msg + ": " + strings.Join(parts, "; ")
}

// AsError returns nil when no error was collected.
func (e *ValidationError) AsError() error {
	if e == nil || (len(e.Errors) == 0 && e.Msg == "") {
		return nil
	}
	return e
}

// HttpResponse returns http response for ValidationError.
func (e *ValidationError) HttpResponse() HttpResponse {
	slice := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		slice[i] = err.Error()
	}
	return HttpResponse{
		Base:   e.Base,
		Status: http.StatusBadRequest,
		Errors: slice,
	}
}

func (e *ValidationError) AddError(err error) *ValidationError {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
	return e
}

func (e *ValidationError) Is(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}
