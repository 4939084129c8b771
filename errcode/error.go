package errcode

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	CoinErrorBase = iota * 1000
	PersistErrorBase
	DiskErrorBase
)

type ProjectError struct {
	Module string
	Code   int
	Desc   string
	// Err is the underlying failure, if any.
	Err error
}

func (e ProjectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("module: %s, global errcode: %v,  errdesc: %s: %v", e.Module, e.Code, e.Desc, e.Err)
	}
	return fmt.Sprintf("module: %s, global errcode: %v,  errdesc: %s", e.Module, e.Code, e.Desc)
}

// Unwrap exposes Err to errors.Is and errors.As.
func (e ProjectError) Unwrap() error {
	return e.Err
}

func getCodeAndName(errCode fmt.Stringer) (int, string) {
	code := 0
	name := ""

	switch t := errCode.(type) {
	case CoinErr:
		code = int(t)
		name = "coin"
	case PersistErr:
		code = int(t)
		name = "persist"
	case DiskErr:
		code = int(t)
		name = "disk"
	default:
	}

	return code, name
}

// IsErrorCode reports whether the root cause of err is the given code.
// Errors annotated with github.com/pkg/errors are unwrapped first.
func IsErrorCode(err error, errCode fmt.Stringer) bool {
	e, ok := errors.Cause(err).(ProjectError)
	icode, name := getCodeAndName(errCode)
	return ok && icode == e.Code && name == e.Module
}

func New(errCode fmt.Stringer) error {
	code, name := getCodeAndName(errCode)

	return ProjectError{
		Module: name,
		Code:   code,
		Desc:   errCode.String(),
	}
}

// Wrap tags err with errCode. IsErrorCode matches the code, and err stays
// reachable through errors.Is and errors.As.
func Wrap(errCode fmt.Stringer, err error) error {
	code, name := getCodeAndName(errCode)
	return ProjectError{
		Module: name,
		Code:   code,
		Desc:   errCode.String(),
		Err:    err,
	}
}
