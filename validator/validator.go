package validator

import (
	"sync"

	"github.com/enverbisevac/locker/errors"
)

// Validator collects the failed checks of one validation pass.
type Validator struct {
	mux    sync.Mutex
	Errors []error
}

func (v *Validator) HasErrors() bool {
	v.mux.Lock()
	defer v.mux.Unlock()
	return len(v.Errors) != 0
}

func (v *Validator) AddError(err ...error) {
	if err == nil {
		return
	}

	nerrs := make([]error, 0, len(err))
	for _, verr := range err {
		if verr != nil {
			nerrs = append(nerrs, verr)
		}
	}

	v.mux.Lock()
	defer v.mux.Unlock()

	v.Errors = append(v.Errors, nerrs...)
}

func (v *Validator) Check(ok bool, err error) {
	if !ok {
		v.AddError(err)
	}
}

// Err returns a ValidationError holding every collected error, or nil.
func (v *Validator) Err(msg string) error {
	if !v.HasErrors() {
		return nil
	}

	verr := errors.Validation("%s", msg)
	for _, err := range v.Errors {
		verr.AddError(err)
	}
	return verr
}
