package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"dailyquiz-client/internal/domain"
)

const (
	eligibilityEndpoint = "/quiz/eligibility"
	todayEndpoint       = "/quiz/today"
	enterEndpoint       = "/quiz/enter"
)

// StatusError carries a non-2xx response so callers can classify the
// rejection by status code and reason message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

// Client talks to the quiz authority's REST snapshot endpoints.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, token string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// CheckEligibility asks whether the participant may enter today's quiz.
func (c *Client) CheckEligibility(ctx context.Context) (domain.Eligibility, error) {
	var out domain.Eligibility
	if err := c.do(ctx, http.MethodGet, eligibilityEndpoint, nil, &out); err != nil {
		return domain.Eligibility{}, fmt.Errorf("check eligibility: %w", err)
	}
	return out, nil
}

// TodayQuiz fetches the snapshot of today's quiz, if one is scheduled.
func (c *Client) TodayQuiz(ctx context.Context) (domain.TodaySnapshot, error) {
	var out domain.TodaySnapshot
	if err := c.do(ctx, http.MethodGet, todayEndpoint, nil, &out); err != nil {
		return domain.TodaySnapshot{}, fmt.Errorf("today quiz: %w", err)
	}
	return out, nil
}

// EnterQuiz registers the participant for the quiz. A rejection surfaces as
// a *StatusError wrapping the server's reason message.
func (c *Client) EnterQuiz(ctx context.Context, quizID string) error {
	body := map[string]string{"quizId": quizID}
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, enterEndpoint, body, &out); err != nil {
		return fmt.Errorf("enter quiz: %w", err)
	}
	if !out.Success {
		// The server can decline with a 200 and success:false; entry only
		// counts when it says so explicitly.
		return fmt.Errorf("enter quiz: declined: %s", out.Message)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(data, &payload)
		c.log.Debug().Int("status", resp.StatusCode).Str("message", payload.Message).
			Str("endpoint", endpoint).Msg("request rejected")
		return &StatusError{Code: resp.StatusCode, Message: payload.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
