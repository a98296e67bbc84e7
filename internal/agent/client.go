package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/seonix/seonix-backend/internal/model"
)

// APIClient talks to the proctoring backend on behalf of the student whose
// token it carries.
type APIClient struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewAPIClient(baseURL, token string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// envelope mirrors the backend's response shape.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StartResult is the response to a session start: the session, the exam's
// time limit, and whether the backend resumed an existing session.
type StartResult struct {
	Session         model.ExamSession `json:"session"`
	Resumed         bool              `json:"resumed"`
	DurationMinutes int               `json:"duration_minutes"`
}

func (c *APIClient) StartSession(ctx context.Context, examID uuid.UUID) (*StartResult, error) {
	var out StartResult
	err := c.do(ctx, http.MethodPost, "/api/v1/sessions/start",
		model.StartSessionRequest{ExamID: examID}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) UpdateActivity(ctx context.Context, sessionID uuid.UUID, patch model.ActivityPatch) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/activity", sessionID)
	return c.do(ctx, http.MethodPut, path, patch, nil)
}

func (c *APIClient) EndSession(ctx context.Context, sessionID uuid.UUID, status model.SessionStatus) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/end", sessionID)
	return c.do(ctx, http.MethodPut, path, model.EndSessionRequest{Status: status}, nil)
}

func (c *APIClient) TouchLog(ctx context.Context, examID, sessionID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/api/v1/proctoring/log",
		model.TouchLogRequest{ExamID: examID, SessionID: sessionID}, nil)
}

func (c *APIClient) ReportViolation(ctx context.Context, req model.LogViolationRequest) (*model.LogViolationResult, error) {
	var out model.LogViolationResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/proctoring/violations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s %s: %s (%s)", method, path, env.Error.Message, env.Error.Code)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, path, err)
		}
	}
	return nil
}
