package fakeapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/models"
)

// validationErrors is the {"errors": {field: [messages]}} body. Field order is
// kept by marshalling the pairs by hand.
type validationErrors []models.FieldError

func (v *validationErrors) add(field, msg string) {
	for i := range *v {
		if (*v)[i].Field == field {
			(*v)[i].Messages = append((*v)[i].Messages, msg)
			return
		}
	}
	*v = append(*v, models.FieldError{Field: field, Messages: []string{msg}})
}

func (v validationErrors) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"errors":{`)
	for i, fe := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(fe.Field)
		msgs, _ := json.Marshal(fe.Messages)
		b.Write(key)
		b.WriteByte(':')
		b.Write(msgs)
	}
	b.WriteString(`}}`)
	return []byte(b.String()), nil
}

// login handles user login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	var errs validationErrors
	if loginReq.Email == "" {
		errs.add("email", "The email field is required.")
	}
	if loginReq.Password == "" {
		errs.add("password", "The password field is required.")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errs)
		return
	}

	s.mu.RLock()
	acc, ok := s.accounts[strings.ToLower(loginReq.Email)]
	s.mu.RUnlock()
	if !ok || !s.authService.CheckPassword(loginReq.Password, acc.passwordHash) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	token, err := s.authService.GenerateToken(&acc.user)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	s.log.WithField("user_id", acc.user.ID).Debug("User logged in")
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: acc.user})
}

// register handles user registration
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var registerReq models.RegisterRequest
	if err := json.Unmarshal(body, &registerReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	errs := validateRegistration(registerReq)
	s.mu.RLock()
	_, taken := s.accounts[strings.ToLower(registerReq.Email)]
	s.mu.RUnlock()
	if taken {
		errs.add("email", "The email has already been taken.")
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errs)
		return
	}

	passwordHash, err := s.authService.HashPassword(registerReq.Password)
	if err != nil {
		http.Error(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	user := s.addAccountLocked(registerReq.Name, registerReq.Email, passwordHash)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Debug("User registered")
	writeJSON(w, http.StatusCreated, map[string]models.User{"user": user})
}

func validateRegistration(req models.RegisterRequest) validationErrors {
	var errs validationErrors
	if req.Name == "" {
		errs.add("name", "The name field is required.")
	}
	if req.Email == "" {
		errs.add("email", "The email field is required.")
	} else if !strings.Contains(req.Email, "@") || !strings.Contains(req.Email, ".") {
		errs.add("email", "The email must be a valid email address.")
	}
	if len(req.Password) < 8 {
		errs.add("password", "The password must be at least 8 characters.")
	}
	if req.Password != req.PasswordConfirmation {
		errs.add("password", "The password confirmation does not match.")
	}
	return errs
}
