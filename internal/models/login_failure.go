package models

import "strings"

// LoginFailureKind tells the two shapes of a rejected login apart.
type LoginFailureKind string

const (
	// LoginFailureAuth is a generic "invalid credentials" answer.
	LoginFailureAuth LoginFailureKind = "auth"
	// LoginFailureValidation carries per-field validation messages.
	LoginFailureValidation LoginFailureKind = "validation"
)

// FieldError holds the validation messages for one request field.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

// LoginFailure is a login rejected by the backend, decided once when the
// response is decoded.
type LoginFailure struct {
	Kind    LoginFailureKind `json:"kind"`
	Message string           `json:"message,omitempty"`
	Fields  []FieldError     `json:"fields,omitempty"`
}

func (f *LoginFailure) Error() string {
	if f.Kind == LoginFailureAuth {
		return "login rejected: " + f.Message
	}
	return "login rejected: " + strings.Join(f.Messages(), "; ")
}

// Messages flattens the field errors in field order.
func (f *LoginFailure) Messages() []string {
	out := []string{}
	for _, fe := range f.Fields {
		out = append(out, fe.Messages...)
	}
	return out
}
