package fault

import "fmt"

type faultCode string

const (
	UnknownCode          faultCode = "unknown"
	NotFoundCode         faultCode = "not_found"
	BadInputCode         faultCode = "bad_input"
	PermissionDeniedCode faultCode = "permission_denied"
)

// FieldErrorsMetadata maps a request field to the problems found with it.
type FieldErrorsMetadata map[string][]string

func (m FieldErrorsMetadata) Add(field, problem string) {
	m[field] = append(m[field], problem)
}

// Fault is a coded error meant to reach the client. Use errors.As to find
// one in an error chain.
type Fault interface {
	error
	Code() faultCode
	Message() string
	Metadata() any
	Original() error
}

type fault struct {
	code     faultCode
	message  string
	metadata any
	original error
}

// BadInput is a bad_input fault carrying field errors.
func BadInput(message string, fields FieldErrorsMetadata) fault {
	return New(BadInputCode, message).WithMetadata(fields)
}

func New(code faultCode, message string) fault {
	return fault{
		code:    code,
		message: message,
	}
}

func (f fault) WithMetadata(metadata any) fault {
	e := f
	e.metadata = metadata
	return e
}

func (f fault) WithOriginal(original error) fault {
	e := f
	e.original = original
	return e
}

func (f fault) Code() faultCode {
	return f.code
}

func (f fault) Message() string {
	return f.message
}

func (f fault) Metadata() any {
	return f.metadata
}

func (f fault) Original() error {
	return f.original
}

func (f fault) Unwrap() error {
	return f.original
}

func (f fault) Error() string {
	if f.original != nil {
		return fmt.Sprintf("%s: %v", f.message, f.original)
	}
	return f.message
}
