package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ukydev/rentacar/internal/models"
)

var (
	// ErrNetwork wraps transport failures: refused connections, timeouts, cancelled contexts.
	ErrNetwork = errors.New("network failure")
	// ErrDecode wraps a response body that is not the expected JSON.
	ErrDecode = errors.New("unexpected response body")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op         string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code: %d, body: %s", e.Op, e.StatusCode, e.Body)
}

// loginFailureFromBody reads the two error shapes the login endpoint uses:
// {"error": "..."} and {"errors": {"field": ["...", ...]}}.
// It returns nil when the body has neither.
func loginFailureFromBody(body []byte) *models.LoginFailure {
	var envelope struct {
		Error  string          `json:"error"`
		Errors json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.Error != "" {
		return &models.LoginFailure{Kind: models.LoginFailureAuth, Message: envelope.Error}
	}
	if len(envelope.Errors) == 0 || string(envelope.Errors) == "null" {
		return nil
	}
	fields, err := decodeFieldErrors(envelope.Errors)
	if err != nil {
		return nil
	}
	return &models.LoginFailure{Kind: models.LoginFailureValidation, Fields: fields}
}

// decodeFieldErrors walks the object token by token so field order survives.
func decodeFieldErrors(raw json.RawMessage) ([]models.FieldError, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("errors is not an object")
	}

	fields := []models.FieldError{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		field, _ := tok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		var msgs []string
		if err := json.Unmarshal(value, &msgs); err != nil {
			var single string
			if err := json.Unmarshal(value, &single); err != nil {
				return nil, err
			}
			msgs = []string{single}
		}
		fields = append(fields, models.FieldError{Field: field, Messages: msgs})
	}
	return fields, nil
}
