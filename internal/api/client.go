// Package api talks to the rental backend over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ukydev/rentacar/internal/auth"
	"github.com/ukydev/rentacar/internal/metrics"
	"github.com/ukydev/rentacar/internal/middleware"
	"github.com/ukydev/rentacar/internal/models"
)

// Endpoint paths relative to the base URL.
const (
	PathVehicles       = "/vehicles"
	PathLocations      = "/locations/list"
	PathFilterVehicles = "/vehicles/filter/"
	PathRegister       = "/api/auth/register"
	PathLogin          = "/api/auth/login"
	PathReservation    = "/create-reservation"
)

// Operation names used in logs and metrics.
const (
	OpListVehicles      = "list_vehicles"
	OpListLocations     = "list_locations"
	OpFilterVehicles    = "filter_vehicles"
	OpRegister          = "register"
	OpLogin             = "login"
	OpCreateReservation = "create_reservation"
)

const maxErrorBody = 64 << 10

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	log       logrus.FieldLogger
	metrics   metrics.Recorder
	timeout   time.Duration
	rps       float64
	burst     int
	transport http.RoundTripper
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client; its transport is wrapped
// with the request id, rate limit and logging transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.transport = hc.Transport
		c.timeout = hc.Timeout
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// WithMetrics sets where request outcomes are recorded.
func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) { c.metrics = r }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.rps = rps
		c.burst = burst
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logrus.StandardLogger(),
		metrics: metrics.Nop{},
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	limiter := middleware.NewRateLimitMiddleware(c.rps, c.burst)
	c.http = &http.Client{
		Timeout: c.timeout,
		Transport: middleware.Chain(c.transport,
			middleware.RequestID,
			limiter.RateLimit,
			middleware.Logging(c.log),
		),
	}
	return c
}

// ListVehicles fetches the whole fleet.
func (c *Client) ListVehicles(ctx context.Context) (vehicles []models.Vehicle, err error) {
	defer c.observe(OpListVehicles, time.Now(), &err)
	vehicles = []models.Vehicle{}
	err = c.do(ctx, OpListVehicles, http.MethodGet, PathVehicles, "", nil, &vehicles)
	return vehicles, err
}

// ListLocations fetches all pickup locations.
func (c *Client) ListLocations(ctx context.Context) (locations []models.Location, err error) {
	defer c.observe(OpListLocations, time.Now(), &err)
	locations = []models.Location{}
	err = c.do(ctx, OpListLocations, http.MethodGet, PathLocations, "", nil, &locations)
	return locations, err
}

// FilterVehicles lets the backend filter the fleet. criteria is sent as one
// path segment without validation.
func (c *Client) FilterVehicles(ctx context.Context, criteria string) (vehicles []models.Vehicle, err error) {
	defer c.observe(OpFilterVehicles, time.Now(), &err)
	vehicles = []models.Vehicle{}
	err = c.do(ctx, OpFilterVehicles, http.MethodGet, PathFilterVehicles+url.PathEscape(criteria), "", nil, &vehicles)
	return vehicles, err
}

// Register creates an account. The response body is ignored.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (err error) {
	defer c.observe(OpRegister, time.Now(), &err)
	return c.do(ctx, OpRegister, http.MethodPost, PathRegister, "", req, nil)
}

// Login exchanges credentials for a token. A rejected login is returned as
// *models.LoginFailure; other failures keep their transport or status error.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (resp *models.LoginResponse, err error) {
	defer c.observe(OpLogin, time.Now(), &err)

	var out models.LoginResponse
	err = c.do(ctx, OpLogin, http.MethodPost, PathLogin, "", req, &out)
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if failure := loginFailureFromBody(statusErr.Body); failure != nil {
			return nil, failure
		}
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReservation books a vehicle on behalf of the token holder.
func (c *Client) CreateReservation(ctx context.Context, token string, req models.ReservationRequest) (err error) {
	defer c.observe(OpCreateReservation, time.Now(), &err)
	return c.do(ctx, OpCreateReservation, http.MethodPost, PathReservation, token, req, nil)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", auth.BearerHeader(token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: data}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, ErrDecode, err)
	}
	return nil
}

func (c *Client) observe(op string, start time.Time, errp *error) {
	err := *errp
	c.metrics.RecordRequest(op, outcome(err), time.Since(start))
	if err != nil {
		c.log.WithFields(logrus.Fields{"operation": op}).WithError(err).Warn("API call failed")
	}
}

func outcome(err error) string {
	var failure *models.LoginFailure
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &failure) && failure.Kind == models.LoginFailureAuth:
		return metrics.OutcomeAuth
	case errors.As(err, &failure):
		return metrics.OutcomeValidation
	case errors.Is(err, ErrNetwork):
		return metrics.OutcomeNetwork
	default:
		return metrics.OutcomeHTTPError
	}
}
