// Package client talks to the seatplan persistence API. Every coordinate it
// sends or receives is an integer tick count.
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
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"seatplan/internal/catalog"
	"seatplan/internal/domain"
	"seatplan/internal/service"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 200 * time.Millisecond
	DefaultTimeout  = 15 * time.Second
)

var ErrRequest = errors.New("request failed")

type Options struct {
	BaseURL  string
	Timeout  time.Duration
	Username string
	Password string
	// Attempts and Delay tune retries of idempotent requests.
	Attempts int
	Delay    time.Duration
	Logger   *log.Logger
}

// Client implements the remote side of service.LayoutService and the
// autosave Syncer, plus plan management.
type Client struct {
	base     string
	http     *http.Client
	user     string
	pass     string
	attempts int
	delay    time.Duration
	logger   *log.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Client{
		base:     strings.TrimRight(opts.BaseURL, "/"),
		http:     &http.Client{Timeout: opts.Timeout},
		user:     opts.Username,
		pass:     opts.Password,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		logger:   opts.Logger,
	}
}

// ─── plans ───────────────────────────────────────────────────

// Fetch loads plans, roster and the layout of planID (or of the active plan
// when planID is nil) for a classroom.
func (c *Client) Fetch(ctx context.Context, classroomID int64, planID *int64) (*domain.PlanBundle, error) {
	path := fmt.Sprintf("/api/classrooms/%d/plans", classroomID)
	if planID != nil {
		path += "?" + url.Values{"plan_id": {strconv.FormatInt(*planID, 10)}}.Encode()
	}
	var b domain.PlanBundle
	if err := c.do(ctx, http.MethodGet, path, nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

type planIDResponse struct {
	PlanID int64 `json:"plan_id"`
}

func (c *Client) CreatePlan(ctx context.Context, in service.CreatePlanInput) (int64, error) {
	var out planIDResponse
	if err := c.do(ctx, http.MethodPost, "/api/plans", in, &out); err != nil {
		return 0, err
	}
	return out.PlanID, nil
}

func (c *Client) ActivatePlan(ctx context.Context, planID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/plans/%d/activate", planID), nil, nil)
}

func (c *Client) DuplicatePlan(ctx context.Context, planID int64) (int64, error) {
	var out planIDResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/plans/%d/duplicate", planID), nil, &out); err != nil {
		return 0, err
	}
	return out.PlanID, nil
}

func (c *Client) ResetPlan(ctx context.Context, planID int64, full bool) (domain.ResetResult, error) {
	var out domain.ResetResult
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/plans/%d/reset", planID), map[string]bool{"full": full}, &out)
	return out, err
}

func (c *Client) DeletePlan(ctx context.Context, planID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/plans/%d", planID), nil, nil)
}

// ExportSVG fetches the rendered plan.
func (c *Client) ExportSVG(ctx context.Context, planID int64) ([]byte, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/plans/%d/export.svg", planID), nil, &buf)
	return buf.Bytes(), err
}

// ─── layout ──────────────────────────────────────────────────

func (c *Client) UpsertPositions(ctx context.Context, planID int64, recs []domain.PositionRecord) error {
	body := map[string][]domain.PositionRecord{"positions": recs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/plans/%d/positions", planID), body, nil)
}

func (c *Client) DeletePosition(ctx context.Context, planID, studentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/plans/%d/positions/%d", planID, studentID), nil, nil)
}

func (c *Client) UpsertFurniture(ctx context.Context, planID int64, recs []domain.FurnitureRecord) error {
	body := map[string][]domain.FurnitureRecord{"furniture": recs}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/plans/%d/furniture", planID), body, nil)
}

func (c *Client) DeleteFurniture(ctx context.Context, planID, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/plans/%d/furniture/%d", planID, itemID), nil, nil)
}

// ─── roster & catalog ────────────────────────────────────────

func (c *Client) UpsertStudents(ctx context.Context, classroomID int64, students []domain.Student) error {
	body := map[string][]domain.Student{"students": students}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/classrooms/%d/students", classroomID), body, nil)
}

func (c *Client) Catalog(ctx context.Context) ([]catalog.Item, error) {
	var items []catalog.Item
	err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &items)
	return items, err
}

// ─── transport ───────────────────────────────────────────────

// errorBody is what the API writes on failure.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// do sends one request. GET, PUT and DELETE are idempotent and retried;
// POST is tried once. out may be a *bytes.Buffer to receive the raw body.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}
	attempts := c.attempts
	if method == http.MethodPost {
		attempts = 1
	}

	start := time.Now()
	err := Retry(ctx, attempts, c.delay, func() error {
		return c.roundTrip(ctx, method, path, payload, out)
	})
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		return err
	}
	c.logger.Debug("request", "method", method, "path", path, "took", time.Since(start))
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: fmt.Errorf("%w: %s %s: %v", ErrRequest, method, path, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(method, path, resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if buf, ok := out.(*bytes.Buffer); ok {
		buf.Reset()
		_, err := buf.ReadFrom(resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func checkStatus(method, path string, resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	var eb errorBody
	json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
	msg := eb.Detail
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = http.StatusText(code)
	}

	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s %s: %s: %w", method, path, msg, domain.ErrNotFound)
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return fmt.Errorf("%s %s: %s: %w", method, path, msg, domain.ErrInvalidInput)
	case code >= 500:
		return &RetryableError{Err: fmt.Errorf("%w: %s %s: status %d: %s", ErrRequest, method, path, code, msg)}
	default:
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRequest, method, path, code, msg)
	}
}
