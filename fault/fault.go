package fault

import "fmt"

type Code string

const (
	BadInputCode Code = "bad_input"
	NotFoundCode Code = "not_found"
)

// FieldErrorsMetadata maps a configuration field path to its problems.
type FieldErrorsMetadata map[string][]string

type Fault struct {
	code     Code
	message  string
	metadata any
	original error
}

func New(code Code, message string) Fault {
	return Fault{
		code:    code,
		message: message,
	}
}

func (f Fault) WithMetadata(metadata any) Fault {
	e := f
	e.metadata = metadata
	return e
}

func (f Fault) WithOriginal(original error) Fault {
	e := f
	e.original = original
	return e
}

func (f Fault) Code() Code {
	return f.code
}

func (f Fault) Message() string {
	return f.message
}

func (f Fault) Metadata() any {
	return f.metadata
}

func (f Fault) Original() error {
	return f.original
}

func (f Fault) Unwrap() error {
	return f.original
}

func (f Fault) Error() string {
	if f.original != nil {
		return fmt.Sprintf("%s: %v", f.message, f.original)
	}
	return f.message
}

// Add records a problem for field, creating the entry if needed.
func (m FieldErrorsMetadata) Add(field, problem string) {
	m[field] = append(m[field], problem)
}
