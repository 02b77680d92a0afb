package fakeapi

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/models"
)

func newServer(t *testing.T) (*Server, *auth.Service) {
	t.Helper()
	authService, err := auth.NewService()
	require.NoError(t, err)
	s := New(authService, nil)
	s.Seed([]models.Vehicle{
		{ID: 1, Slug: "tesla-model-3", Locations: []models.Location{{ID: 1}}},
		{ID: 2, Slug: "ford-focus", Locations: []models.Location{{ID: 2}}},
	}, []models.Location{{ID: 1, Name: "Airport"}, {ID: 2, Name: "Downtown"}})
	return s, authService
}

func post(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(data))
	if token != "" {
		req.Header.Set("Authorization", auth.BearerHeader(token))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Login(t *testing.T) {
	s, authService := newServer(t)
	_, err := s.AddUser("Ana", "ana@example.com", "password123")
	require.NoError(t, err)
	h := s.Handler()

	t.Run("successful login", func(t *testing.T) {
		w := post(t, h, "/api/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "password123"})
		assert.Equal(t, http.StatusOK, w.Code)

		var response models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Ana", response.User.Name)
		_, err := authService.ValidateToken(response.Token)
		assert.NoError(t, err)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		w := post(t, h, "/api/auth/login", "", models.LoginRequest{Email: "ana@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		w := post(t, h, "/api/auth/login", "", models.LoginRequest{})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t,
			`{"errors":{"email":["The email field is required."],"password":["The password field is required."]}}`,
			strings.TrimSpace(w.Body.String()))
	})
}

func TestServer_Register(t *testing.T) {
	s, _ := newServer(t)
	h := s.Handler()

	req := models.RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "password123", PasswordConfirmation: "password123"}
	w := post(t, h, "/api/auth/register", "", req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = post(t, h, "/api/auth/register", "", req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "already been taken")

	w = post(t, h, "/api/auth/register", "", models.RegisterRequest{Email: "bad", Password: "short"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"name"`)
	assert.Contains(t, w.Body.String(), "valid email")
}

func TestServer_FilterVehicles(t *testing.T) {
	s, _ := newServer(t)
	h := s.Handler()

	for criteria, expected := range map[string]string{"2": "ford-focus", "tesla": "tesla-model-3"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vehicles/filter/"+criteria, nil))
		require.Equal(t, http.StatusOK, w.Code)

		var vehicles []models.Vehicle
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vehicles))
		require.Len(t, vehicles, 1)
		assert.Equal(t, expected, vehicles[0].Slug)
	}
}

func TestServer_CreateReservation(t *testing.T) {
	s, authService := newServer(t)
	user, _ := s.AddUser("Ana", "ana@example.com", "password123")
	token, _ := authService.GenerateToken(&user)
	h := s.Handler()

	pickup := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)
	req := models.ReservationRequest{
		VehicleID:  1,
		LocationID: 1,
		Pickup:     models.Timestamp{Time: pickup},
		DropOff:    models.Timestamp{Time: pickup.Add(48 * time.Hour)},
	}

	w := post(t, h, "/create-reservation", "", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(t, h, "/create-reservation", token, req)
	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, s.Reservations(), 1)
	assert.Equal(t, "1", s.Reservations()[0].UserID)

	w = post(t, h, "/create-reservation", token, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	req.VehicleID = 99
	w = post(t, h, "/create-reservation", token, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogue(t *testing.T) {
	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	vehicles, locations := Catalogue(rand.New(rand.NewSource(1)), 25, now)

	assert.Len(t, vehicles, 25)
	assert.Len(t, locations, len(cities))
	slugs := map[string]bool{}
	for _, v := range vehicles {
		assert.NotEmpty(t, v.Locations)
		assert.Contains(t, makes[v.Type], v.Make)
		assert.Contains(t, vehicleModels[v.Type], v.Model)
		assert.True(t, strings.HasPrefix(v.Slug, slugify(v.Make+" "+v.Model)), v.Slug)
		assert.False(t, slugs[v.Slug], "duplicate slug %s", v.Slug)
		slugs[v.Slug] = true
		for _, d := range v.Dates {
			assert.True(t, d.Pickup.Before(d.DropOff.Time))
		}
	}
}
