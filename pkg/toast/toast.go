// Package toast carries the user-facing notifications produced by actions.
package toast

import "errors"

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

type Toast struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

func Success(title, description string) Toast {
	return Toast{Title: title, Description: description, Variant: VariantDefault}
}

// Error is a user-input validation failure. Actions that return one leave
// all state untouched.
type Error struct {
	Title       string
	Description string
	Code        Code
}

// Code classifies an Error for transports that need a status.
type Code int

const (
	CodeInvalid Code = iota
	CodeUnauthorized
	CodeNotFound
)

func New(code Code, title, description string) *Error {
	return &Error{Title: title, Description: description, Code: code}
}

func (e *Error) Error() string {
	return e.Title + ": " + e.Description
}

func (e *Error) Toast() Toast {
	return Toast{Title: e.Title, Description: e.Description, Variant: VariantDestructive}
}

// FromError returns the toast and code carried by err, if any.
func FromError(err error) (Toast, Code, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Toast(), te.Code, true
	}
	return Toast{}, CodeInvalid, false
}
