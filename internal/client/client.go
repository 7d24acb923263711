// Package client talks to the code.golf server: it runs submissions and
// fetches mini rankings.
package client

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

	"go.uber.org/zap"

	"github.com/rcliao/hole-sync/internal/model"
)

// ErrStatus is returned when the server answers with a non-success status.
var ErrStatus = errors.New("unexpected status")

// StatusError carries the status code of a failed request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s %d: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithSession sends the given session cookie value with each request.
func WithSession(token string) Option {
	return func(c *Client) { c.session = token }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// Client is a code.golf API client.
type Client struct {
	baseURL string
	session string
	http    *http.Client
	log     *zap.Logger
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Submit runs code against a hole. id is sent as X-Request-ID.
func (c *Client) Submit(ctx context.Context, id string, sr model.SubmitRequest) (*model.SubmitResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, fmt.Errorf("encode submission: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/solution", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	res, err := model.DecodeSubmitResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	c.log.Debug("verdict received",
		zap.String("id", id), zap.String("hole", sr.Hole), zap.String("lang", sr.Lang), zap.Bool("pass", res.Pass))
	return res, nil
}

// Rankings fetches the mini rankings table for q.
func (c *Client) Rankings(ctx context.Context, q model.RankingsQuery) ([]model.RankingRow, error) {
	endpoint := fmt.Sprintf("%s/api/mini-rankings/%s/%s/%s/%s?ng=1", c.baseURL,
		url.PathEscape(q.Hole), url.PathEscape(q.Lang), q.Metric.ID(), model.NormalizeView(q.View))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []model.RankingRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: rankings: %v", model.ErrSchema, err)
	}
	if rows == nil {
		rows = []model.RankingRow{}
	}
	return rows, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: "__Host-session", Value: c.session})
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	c.log.Debug("request done",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}
