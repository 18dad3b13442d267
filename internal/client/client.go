// Package client talks to the teamdocs HTTP API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/ConfabulousDev/teamdocs/internal/analytics"
	"github.com/ConfabulousDev/teamdocs/internal/models"
)

const (
	// compressionThreshold is the minimum payload size to compress.
	compressionThreshold = 1024 // 1KB
)

var (
	// ErrUnauthorized is returned when the server rejects the session and
	// it could not be refreshed.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotLoggedIn is returned by authenticated calls without a session.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a non-2xx response carrying the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Client is an HTTP client for the teamdocs API. It refreshes an expired
// access token once per request and reports new tokens to the saver.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	encoder    *zstd.Encoder
	saveTokens func(*Config) error
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSaver is called after login and after every token refresh.
func WithTokenSaver(fn func(*Config) error) Option {
	return func(c *Client) { c.saveTokens = fn }
}

// New creates a client for cfg.BackendURL.
func New(cfg *Config, timeout time.Duration, opts ...Option) *Client {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		encoder:    encoder,
		saveTokens: func(*Config) error { return nil },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the client's session config.
func (c *Client) Config() *Config {
	return c.cfg
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	encoding    string
	auth        bool
}

func (c *Client) jsonRequest(method, path string, body interface{}, auth bool) (*request, error) {
	req := &request{method: method, path: path, auth: auth}
	if body == nil {
		return req, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.contentType = "application/json"
	if len(payload) >= compressionThreshold {
		req.body = c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
		req.encoding = "zstd"
	} else {
		req.body = payload
	}
	return req, nil
}

// send executes req. An authenticated request answered with 401 is retried
// once after a token refresh.
func (c *Client) send(ctx context.Context, req *request) (int, []byte, error) {
	if req.auth && !c.cfg.LoggedIn() {
		return 0, nil, ErrNotLoggedIn
	}

	status, body, err := c.roundTrip(ctx, req)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized && req.auth && c.cfg.RefreshToken != "" {
		if err := c.refresh(ctx); err != nil {
			return 0, nil, err
		}
		status, body, err = c.roundTrip(ctx, req)
		if err != nil {
			return 0, nil, err
		}
	}

	if status == http.StatusUnauthorized && req.auth {
		return status, nil, fmt.Errorf("%w: %s", ErrUnauthorized, errorMessage(body))
	}
	if status < 200 || status > 299 {
		return status, nil, &APIError{Status: status, Message: errorMessage(body)}
	}
	return status, body, nil
}

func (c *Client) roundTrip(ctx context.Context, req *request) (int, []byte, error) {
	var bodyReader io.Reader
	if req.body != nil {
		bodyReader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.cfg.BackendURL+req.path, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.encoding != "" {
		httpReq.Header.Set("Content-Encoding", req.encoding)
	}
	if req.auth && c.cfg.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}
	if c.cfg.Username != "" {
		httpReq.Header.Set("X-Username", c.cfg.Username)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) refresh(ctx context.Context) error {
	req, err := c.jsonRequest("POST", "/refresh", map[string]string{"refresh_token": c.cfg.RefreshToken}, false)
	if err != nil {
		return err
	}
	status, body, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: session expired, log in again", ErrUnauthorized)
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to parse refresh response: %w", err)
	}
	c.cfg.AccessToken = tokens.AccessToken
	if err := c.saveTokens(c.cfg); err != nil {
		return fmt.Errorf("failed to save refreshed token: %w", err)
	}
	return nil
}

// doJSON sends a JSON request and decodes a JSON response into respBody.
// It returns the response status so callers can tell 200 from 204.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody interface{}, auth bool) (int, error) {
	req, err := c.jsonRequest(method, path, reqBody, auth)
	if err != nil {
		return 0, err
	}
	status, body, err := c.send(ctx, req)
	if err != nil {
		return status, err
	}
	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return status, fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return status, nil
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return string(bytes.TrimSpace(body))
}

// Signup registers a new team.
func (c *Client) Signup(ctx context.Context, email, password string, usernames []string) error {
	_, err := c.doJSON(ctx, "POST", "/signup", map[string]interface{}{
		"email":     email,
		"password":  password,
		"usernames": usernames,
	}, nil, false)
	return err
}

// Login authenticates a team member and stores the issued tokens.
func (c *Client) Login(ctx context.Context, email, username, password string) error {
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	_, err := c.doJSON(ctx, "POST", "/login", map[string]string{
		"email":    email,
		"username": username,
		"password": password,
	}, &tokens, false)
	if err != nil {
		return err
	}

	c.cfg.Email = email
	c.cfg.Username = username
	c.cfg.AccessToken = tokens.AccessToken
	c.cfg.RefreshToken = tokens.RefreshToken
	return c.saveTokens(c.cfg)
}

// ListDocuments returns the team's documents.
func (c *Client) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	var docs []models.DocumentSummary
	_, err := c.doJSON(ctx, "GET", "/documents", nil, &docs, true)
	return docs, err
}

// CreateDocument creates an empty document and returns its id.
func (c *Client) CreateDocument(ctx context.Context, title string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	_, err := c.doJSON(ctx, "POST", "/documents", map[string]string{"title": title}, &resp, true)
	return resp.ID, err
}

// GetDocument fetches one document.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if _, err := c.doJSON(ctx, "GET", "/documents/"+id, nil, &doc, true); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument replaces a document's content as the logged-in member.
func (c *Client) UpdateDocument(ctx context.Context, id, content string) error {
	_, err := c.doJSON(ctx, "POST", "/documents/"+id, map[string]string{
		"content":  content,
		"username": c.cfg.Username,
	}, nil, true)
	return err
}

// DeleteDocument deletes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, "DELETE", "/documents/"+id, nil, nil, true)
	return err
}

// UploadDocx uploads a .docx file and returns the new document id.
func (c *Client) UploadDocx(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to build upload: %w", err)
	}

	req := &request{
		method:      "POST",
		path:        "/upload_doc",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		auth:        true,
	}
	_, body, err := c.send(ctx, req)
	if err != nil {
		return "", err
	}

	var resp struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.DocID, nil
}

// Analytics returns the team's analytics, or nil when there is no activity.
func (c *Client) Analytics(ctx context.Context) (*analytics.Payload, error) {
	var payload analytics.Payload
	status, err := c.doJSON(ctx, "GET", "/analytics", nil, &payload, true)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &payload, nil
}

// ResetAnalytics deletes the team's activity history.
func (c *Client) ResetAnalytics(ctx context.Context) (int64, error) {
	var resp struct {
		Deleted int64 `json:"deleted"`
	}
	_, err := c.doJSON(ctx, "POST", "/analytics/reset", nil, &resp, true)
	return resp.Deleted, err
}

// Summarize condenses text in the given style.
func (c *Client) Summarize(ctx context.Context, text, style string) (string, error) {
	var resp struct {
		Summary string `json:"summary"`
	}
	_, err := c.doJSON(ctx, "POST", "/summarize", map[string]string{"text": text, "style": style}, &resp, true)
	return resp.Summary, err
}

// TeamMembers lists the team's member names.
func (c *Client) TeamMembers(ctx context.Context) ([]string, error) {
	var resp struct {
		Members []string `json:"members"`
	}
	_, err := c.doJSON(ctx, "GET", "/team_members", nil, &resp, true)
	return resp.Members, err
}
