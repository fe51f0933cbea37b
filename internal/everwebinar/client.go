// Package everwebinar is a client for the EverWebinar (WebinarJam) API.
package everwebinar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/everweb-bridge/backend/internal/models"
)

// DefaultTimezone is sent with every registration.
const DefaultTimezone = "UTC"

// ErrMalformedResponse is returned when a listing lacks webinar.schedules.
var ErrMalformedResponse = errors.New("invalid API response format")

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("everwebinar: unexpected status %d", e.StatusCode)
}

// Registrant is a person to register for a schedule.
type Registrant struct {
	FirstName  string
	LastName   string
	Email      string
	ScheduleID json.RawMessage
}

// Client talks to the provider's list and register endpoints. Each call is a
// single attempt; callers apply retry.
type Client struct {
	baseURL    string
	apiKey     string
	webinarID  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a provider client.
func NewClient(baseURL, apiKey, webinarID string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = DefaultHTTPClient(30 * time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		webinarID:  webinarID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// DefaultHTTPClient returns an http.Client with the given timeout.
func DefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

type listRequest struct {
	APIKey    string `json:"api_key"`
	WebinarID string `json:"webinar_id"`
	Page      int    `json:"page"`
}

type listResponse struct {
	Webinar *struct {
		Schedules []remoteSchedule `json:"schedules"`
	} `json:"webinar"`
}

type remoteSchedule struct {
	Date     string          `json:"date"`
	Schedule json.RawMessage `json:"schedule"`
	Comment  string          `json:"comment"`
}

type registerRequest struct {
	APIKey    string          `json:"api_key"`
	WebinarID string          `json:"webinar_id"`
	Schedule  json.RawMessage `json:"schedule"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name,omitempty"`
	Timezone  string          `json:"timezone"`
	Page      int             `json:"page"`
}

// ListSchedules returns the webinar's schedules in provider order.
func (c *Client) ListSchedules(ctx context.Context) ([]models.ScheduleEntry, error) {
	c.logger.Debug("listing schedules",
		zap.Bool("api_key_present", c.apiKey != ""),
		zap.Bool("webinar_id_present", c.webinarID != ""),
	)
	raw, err := c.post(ctx, "/webinar", listRequest{APIKey: c.apiKey, WebinarID: c.webinarID})
	if err != nil {
		return nil, err
	}

	var body listResponse
	if err := json.Unmarshal(raw, &body); err != nil {
		c.logger.Error("invalid response format", zap.ByteString("body", raw))
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Webinar == nil || len(body.Webinar.Schedules) == 0 {
		c.logger.Error("invalid response format", zap.ByteString("body", raw))
		return nil, ErrMalformedResponse
	}

	entries := make([]models.ScheduleEntry, 0, len(body.Webinar.Schedules))
	for _, s := range body.Webinar.Schedules {
		entries = append(entries, models.ScheduleEntry{
			Date:       s.Date,
			ScheduleID: s.Schedule,
			Comment:    s.Comment,
		})
	}
	return entries, nil
}

// Register registers a person and returns the provider's raw response.
func (c *Client) Register(ctx context.Context, r Registrant) (json.RawMessage, error) {
	raw, err := c.post(ctx, "/register", registerRequest{
		APIKey:    c.apiKey,
		WebinarID: c.webinarID,
		Schedule:  r.ScheduleID,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Timezone:  DefaultTimezone,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("everwebinar registration response", zap.ByteString("body", raw))
	return json.RawMessage(raw), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("everwebinar %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Valid(raw) {
			apiErr.Body = raw
		}
		return nil, apiErr
	}
	return raw, nil
}
