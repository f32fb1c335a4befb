// Package solver talks to the external challenge solving service using its
// create-task / poll-result API. Every call creates a fresh remote task, so
// callers may retry freely.
package solver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"certhub/internal/acquire"
	"certhub/internal/platform/metrics"
)

const (
	createTaskPath    = "/createTask"
	getTaskResultPath = "/getTaskResult"

	statusReady      = "ready"
	statusProcessing = "processing"
)

// Client submits challenges and polls for their solutions.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollAttempts int
	log          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithPolling sets the poll interval and the bounded attempt count.
func WithPolling(interval time.Duration, attempts int) Option {
	return func(s *Client) {
		if interval > 0 {
			s.pollInterval = interval
		}
		if attempts > 0 {
			s.pollAttempts = attempts
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Client) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a solver client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("solver api key is required")
	}
	if baseURL == "" {
		return nil, fmt.Errorf("solver base URL is required")
	}
	c := &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 3 * time.Second,
		pollAttempts: 40,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SolveImage submits an image-to-text puzzle and waits for the transcription.
func (c *Client) SolveImage(ctx context.Context, image []byte) (string, error) {
	task := map[string]any{
		"type": "ImageToTextTask",
		"body": base64.StdEncoding.EncodeToString(image),
	}
	return c.solve(ctx, "image", task)
}

// SolveToken submits an interactive widget challenge identified by page URL
// and site key, and waits for the response token.
func (c *Client) SolveToken(ctx context.Context, siteURL, siteKey string) (string, error) {
	task := map[string]any{
		"type":       "RecaptchaV2TaskProxyless",
		"websiteURL": siteURL,
		"websiteKey": siteKey,
	}
	return c.solve(ctx, "token", task)
}

func (c *Client) solve(ctx context.Context, kind string, task map[string]any) (string, error) {
	correlation := uuid.NewString()
	log := c.log.With("kind", kind, "correlation", correlation)

	taskID, err := c.createTask(ctx, task)
	if err != nil {
		metrics.SolverRequestsTotal.WithLabelValues(kind, "failure").Inc()
		return "", err
	}
	log.Debug("solver task created", "task_id", taskID)

	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			metrics.SolverRequestsTotal.WithLabelValues(kind, "timeout").Inc()
			return "", acquire.NewError(acquire.KindChallengeTimeout, "solver poll canceled", ctx.Err())
		case <-time.After(c.pollInterval):
		}

		solution, done, err := c.pollResult(ctx, taskID)
		if err != nil {
			metrics.SolverRequestsTotal.WithLabelValues(kind, "failure").Inc()
			return "", err
		}
		if done {
			metrics.SolverRequestsTotal.WithLabelValues(kind, "success").Inc()
			log.Debug("solver task ready", "task_id", taskID, "polls", attempt)
			return solution, nil
		}
	}

	metrics.SolverRequestsTotal.WithLabelValues(kind, "timeout").Inc()
	return "", acquire.NewError(acquire.KindChallengeTimeout,
		fmt.Sprintf("solver did not answer within %d polls", c.pollAttempts), nil)
}

type createTaskRequest struct {
	ClientKey string         `json:"clientKey"`
	Task      map[string]any `json:"task"`
}

type createTaskResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int64  `json:"taskId"`
}

func (c *Client) createTask(ctx context.Context, task map[string]any) (int64, error) {
	var resp createTaskResponse
	err := c.post(ctx, createTaskPath, createTaskRequest{ClientKey: c.apiKey, Task: task}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.ErrorID != 0 {
		return 0, acquire.NewError(acquire.KindSolverFailure,
			fmt.Sprintf("create task: %s (%s)", resp.ErrorDescription, resp.ErrorCode), nil)
	}
	return resp.TaskID, nil
}

type taskResultRequest struct {
	ClientKey string `json:"clientKey"`
	TaskID    int64  `json:"taskId"`
}

type taskResultResponse struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	Status           string `json:"status"`
	Solution         struct {
		Text               string `json:"text"`
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
	} `json:"solution"`
}

func (c *Client) pollResult(ctx context.Context, taskID int64) (string, bool, error) {
	var resp taskResultResponse
	err := c.post(ctx, getTaskResultPath, taskResultRequest{ClientKey: c.apiKey, TaskID: taskID}, &resp)
	if err != nil {
		return "", false, err
	}
	if resp.ErrorID != 0 {
		return "", false, acquire.NewError(acquire.KindSolverFailure,
			fmt.Sprintf("task result: %s (%s)", resp.ErrorDescription, resp.ErrorCode), nil)
	}
	if resp.Status != statusReady {
		return "", false, nil
	}
	if resp.Solution.Text != "" {
		return resp.Solution.Text, true, nil
	}
	return resp.Solution.GRecaptchaResponse, true, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return acquire.NewError(acquire.KindSolverFailure, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return acquire.NewError(acquire.KindSolverFailure, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return acquire.NewError(acquire.KindSolverFailure, "call solver", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return acquire.NewError(acquire.KindSolverFailure,
			fmt.Sprintf("solver returned HTTP %d", resp.StatusCode), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return acquire.NewError(acquire.KindSolverFailure, "decode response", err)
	}
	return nil
}
