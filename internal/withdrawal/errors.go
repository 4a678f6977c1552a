package withdrawal

import (
	"github.com/Aidin1998/finalex-console/pkg/errors"
)

// Field names used for field-scoped errors.
const (
	FieldTo     = "to"
	FieldAmount = "amount"
	FieldCode   = "code"
)

func fieldError(sentinel *errors.Error, field, format string, args ...any) *errors.Error {
	e := sentinel.Explain(format, args...)
	return e.WithField(field, e.Message)
}

func transitionError(from Step, event Event) *errors.Error {
	return errors.ErrInvalidTransition.Explain("cannot %s from step %s", event, from)
}
