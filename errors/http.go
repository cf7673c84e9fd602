package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// HttpResponse is the JSON body written for a failed request.
type HttpResponse struct {
	Base
	Status int      `json:"-"`
	Errors []string `json:"errors,omitempty"`
}

type httpResponder interface {
	HttpResponse() HttpResponse
}

// HttpStatus returns the http status code mapped to err.
// Errors outside of this package map to 500.
func HttpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return responseOf(err).Status
}

// Response writes err as a JSON document with the mapped status code.
func Response(w http.ResponseWriter, err error) error {
	resp := responseOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	return json.NewEncoder(w).Encode(resp)
}

func responseOf(err error) HttpResponse {
	var r httpResponder
	if As(err, &r) {
		return r.HttpResponse()
	}
	return HttpResponse{
		Base: Base{
			Msg:       http.StatusText(http.StatusInternalServerError),
			Code:      CodeInternal,
			Timestamp: time.Now(),
		},
		Status: http.StatusInternalServerError,
	}
}
