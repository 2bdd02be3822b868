package errors

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"

	// CodeStructural marks an unterminated or unexpected Fortran construct.
	CodeStructural ErrorCode = "STRUCTURAL_ERROR"
	// CodeResolution marks a name that could not be resolved during correlation.
	CodeResolution ErrorCode = "RESOLUTION_WARNING"
	// CodeIOTracker marks file sessions left open at the end of a procedure.
	CodeIOTracker ErrorCode = "IO_TRACKER_WARNING"
	// CodeLiteral marks a literal that cannot hold the value the source assigns to it.
	CodeLiteral ErrorCode = "LITERAL_ERROR"
)

type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]interface{}
}

const (
	CtxPath      = "path"
	CtxLine      = "line"
	CtxOperation = "operation"
	CtxEntity    = "entity"
	CtxSymbol    = "symbol"
)

func (e *DomainError) WithContext(key string, value interface{}) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) > 0 {
		msg += fmt.Sprintf(" %v", e.Context)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

// Newf is New with a format string.
func Newf(code ErrorCode, format string, args ...interface{}) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches a context value to a DomainError, wrapping plain errors
// as internal errors first.
func AddContext(err error, key string, value interface{}) error {
	var de *DomainError
	if errors.As(err, &de) {
		de.WithContext(key, value)
		return err
	}
	return &DomainError{
		Code:    CodeInternal,
		Message: "wrapped error",
		Err:     err,
		Context: map[string]interface{}{key: value},
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost DomainError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

// Structural builds a STRUCTURAL_ERROR located at path:line.
func Structural(path string, line int, format string, args ...interface{}) error {
	de := &DomainError{Code: CodeStructural, Message: fmt.Sprintf(format, args...)}
	de.WithContext(CtxPath, path).WithContext(CtxLine, line)
	return de
}

// Resolution builds a RESOLUTION_WARNING for symbol referenced from entity.
func Resolution(entity, symbol, format string, args ...interface{}) error {
	de := &DomainError{Code: CodeResolution, Message: fmt.Sprintf(format, args...)}
	de.WithContext(CtxEntity, entity).WithContext(CtxSymbol, symbol)
	return de
}
