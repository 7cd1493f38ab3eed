// Package client is a Go SDK for the interview-engine API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a Go SDK for interview-engine API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new client. token is a user token issued by the
// identity provider.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is returned for non-2xx responses
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// Session is a snapshot of an interview session
type Session struct {
	ID             string       `json:"id"`
	Skill          string       `json:"skill"`
	Skills         []string     `json:"skills"`
	Difficulty     string       `json:"difficulty"`
	Phase          string       `json:"phase"`
	Status         string       `json:"status"`
	CurrentIndex   int          `json:"current_index"`
	TotalQuestions int          `json:"total_questions"`
	Question       string       `json:"question,omitempty"`
	Questions      []string     `json:"questions"`
	Answers        []string     `json:"answers"`
	ResponseTimes  []int        `json:"response_times"`
	InputMode      string       `json:"input_mode"`
	Transcript     string       `json:"transcript"`
	Elapsed        string       `json:"elapsed"`
	QuestionTime   string       `json:"question_elapsed"`
	InterviewID    int64        `json:"interview_id,omitempty"`
	Error          string       `json:"error,omitempty"`
	Result         *ScoreResult `json:"result,omitempty"`
	QuitReason     string       `json:"quit_reason,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Finished reports whether the session reached a terminal phase
func (s *Session) Finished() bool {
	return s.Phase == "completed" || s.Phase == "quit" || s.Phase == "error"
}

// QuestionScore is the evaluation of one answer
type QuestionScore struct {
	Score      int    `json:"score"`
	Feedback   string `json:"feedback"`
	Confidence string `json:"confidence"`
}

// ScoreResult is the evaluation of a completed interview
type ScoreResult struct {
	PerQuestion []QuestionScore `json:"perQuestion"`
	Summary     struct {
		Total          int      `json:"total"`
		Avg            float64  `json:"avg"`
		Strengths      []string `json:"strengths"`
		Improvements   []string `json:"improvements"`
		ConfidenceTips []string `json:"confidenceTips"`
	} `json:"summary"`
}

// CreateSessionRequest starts an interview on up to three skills
type CreateSessionRequest struct {
	Skills     []string `json:"skills"`
	Difficulty string   `json:"difficulty"`
	InputMode  string   `json:"input_mode,omitempty"`
}

// LeaderboardEntry is one ranked interview
type LeaderboardEntry struct {
	ID                 int64     `json:"id"`
	UserID             string    `json:"user_id"`
	FirstName          string    `json:"user_first_name"`
	LastName           string    `json:"user_last_name"`
	Username           string    `json:"user_username"`
	Skill              string    `json:"skill"`
	Difficulty         string    `json:"difficulty"`
	TotalScore         int       `json:"total_score"`
	AvgScore           float64   `json:"avg_score"`
	QuestionsAttempted int       `json:"questions_attempted"`
	IsCompleted        bool      `json:"is_completed"`
	Rank               int       `json:"global_rank"`
	InterviewCount     int       `json:"interview_count"`
	OverallAvgScore    float64   `json:"overall_avg_score"`
	CreatedAt          time.Time `json:"created_at"`
}

// HistoryEntry is one interview in a user's history
type HistoryEntry struct {
	ID                   int64     `json:"id"`
	Skill                string    `json:"skill"`
	Difficulty           string    `json:"difficulty"`
	TotalScore           int       `json:"total_score"`
	AvgScore             float64   `json:"avg_score"`
	QuestionsAttempted   int       `json:"questions_attempted"`
	IsCompleted          bool      `json:"is_completed"`
	CompletionPercentage int       `json:"completion_percentage"`
	PerformanceRating    string    `json:"performance_rating"`
	DurationFormatted    string    `json:"duration_formatted"`
	CreatedAt            time.Time `json:"created_at"`
}

// History is a user's interview history with its summary
type History struct {
	Interviews []HistoryEntry `json:"interviews"`
	Summary    struct {
		TotalInterviews         int      `json:"total_interviews"`
		CompletedInterviews     int      `json:"completed_interviews"`
		AverageScore            float64  `json:"average_score"`
		BestScore               float64  `json:"best_score"`
		SkillsPracticed         []string `json:"skills_practiced"`
		TotalQuestionsAttempted int      `json:"total_questions_attempted"`
	} `json:"summary"`
	UserID string `json:"user_id"`
	Note   string `json:"note,omitempty"`
}

// CreateSession starts a session. Questions load in the background; use
// WaitForQuestions to block until the session is active.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	var s Session
	if err := c.call(ctx, http.MethodPost, "/api/v1/sessions", req, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSession retrieves a session by ID
func (c *Client) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := c.call(ctx, http.MethodGet, "/api/v1/sessions/"+url.PathEscape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// WaitForQuestions polls until the session leaves the loading phase
func (c *Client) WaitForQuestions(ctx context.Context, id string, interval time.Duration) (*Session, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s, err := c.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.Phase != "loading" {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Next answers the current question. An empty answer submits the
// transcript collected by the server.
func (c *Client) Next(ctx context.Context, id, answer string) (*Session, error) {
	body := map[string]string{}
	if answer != "" {
		body["answer"] = answer
	}
	return c.sessionAction(ctx, http.MethodPost, id, "/next", body)
}

// Prev goes back one question
func (c *Client) Prev(ctx context.Context, id string) (*Session, error) {
	return c.sessionAction(ctx, http.MethodPost, id, "/prev", nil)
}

// Submit scores a session whose questions are all answered
func (c *Client) Submit(ctx context.Context, id string) (*Session, error) {
	return c.sessionAction(ctx, http.MethodPost, id, "/submit", nil)
}

// Quit ends a session early with one of the server's quit reasons
func (c *Client) Quit(ctx context.Context, id, reason string) (*Session, error) {
	return c.sessionAction(ctx, http.MethodPost, id, "/quit", map[string]string{"reason": reason})
}

// SetText switches the session to typed input and replaces the answer
func (c *Client) SetText(ctx context.Context, id, text string) (*Session, error) {
	return c.sessionAction(ctx, http.MethodPut, id, "/transcript", map[string]string{"mode": "text", "text": text})
}

// DeleteSession abandons a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/api/v1/sessions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) sessionAction(ctx context.Context, method, id, action string, body interface{}) (*Session, error) {
	var s Session
	if err := c.call(ctx, method, "/api/v1/sessions/"+url.PathEscape(id)+action, body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Leaderboard returns the best completed interviews
func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var result struct {
		GlobalLeaderboard []LeaderboardEntry `json:"globalLeaderboard"`
	}
	if err := c.callRaw(ctx, http.MethodGet, "/api/v1/leaderboard", nil, &result); err != nil {
		return nil, err
	}
	return result.GlobalLeaderboard, nil
}

// PersonalStats returns the latest interviews of userID
func (c *Client) PersonalStats(ctx context.Context, userID string) ([]LeaderboardEntry, error) {
	var result struct {
		PersonalStats []LeaderboardEntry `json:"personalStats"`
	}
	path := "/api/v1/leaderboard?user_id=" + url.QueryEscape(userID)
	if err := c.callRaw(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.PersonalStats, nil
}

// GlobalLeaderboard returns the global ranking. fallback is true when the
// server could not reach its database and returned an empty placeholder.
func (c *Client) GlobalLeaderboard(ctx context.Context) (entries []LeaderboardEntry, fallback bool, err error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/leaderboard/global", nil)
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(resp.body, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return entries, resp.header.Get("X-Fallback-Data") == "true", nil
}

// History returns the interview history of userID
func (c *Client) History(ctx context.Context, userID string) (*History, error) {
	var h History
	if err := c.callRaw(ctx, http.MethodGet, "/api/v1/users/"+url.PathEscape(userID)+"/history", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

// call performs a request against an endpoint using the
// {success, data, error} envelope and decodes data into out
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	var result struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.body, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if out == nil || len(result.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	return nil
}

// callRaw performs a request against an endpoint without the envelope
func (c *Client) callRaw(ctx context.Context, method, path string, body, out interface{}) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

type response struct {
	body   []byte
	header http.Header
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) (*response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, respBody)
	}

	return &response{body: respBody, header: resp.Header}, nil
}

// parseError understands both the envelope and the plain {error} shape
func parseError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(body))}

	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return apiErr
	}

	var detailed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	var plain string
	switch {
	case json.Unmarshal(envelope.Error, &detailed) == nil:
		apiErr.Code = detailed.Code
		apiErr.Message = detailed.Message
	case json.Unmarshal(envelope.Error, &plain) == nil:
		apiErr.Message = plain
	}
	return apiErr
}
