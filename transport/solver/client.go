package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/wricardo/klotski/game/engine"
)

// ErrMalformedResponse is returned when the solver answers 2xx with a body
// that does not decode to unit cardinal moves
var ErrMalformedResponse = errors.New("malformed solver response")

// StatusError is a non-2xx answer from the solver
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("solver error: %d", e.Code)
	}
	return fmt.Sprintf("solver error: %d: %s", e.Code, e.Body)
}

// Client calls the external solving service. Requests carry no timeout;
// only the caller's context aborts them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger used for failed requests
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the solver at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the solver address
func (c *Client) BaseURL() string {
	return c.baseURL
}

type solveResponse struct {
	Moves []engine.Move `json:"moves"`
}

// Solve requests the full move sequence from the given board state
func (c *Client) Solve(ctx context.Context, state engine.BoardState) ([]engine.Move, error) {
	var resp solveResponse
	if err := c.post(ctx, "/solve", state, &resp); err != nil {
		return nil, err
	}
	if resp.Moves == nil {
		return nil, fmt.Errorf("%w: missing moves", ErrMalformedResponse)
	}
	for i, m := range resp.Moves {
		if !m.IsUnit() {
			return nil, fmt.Errorf("%w: move %d %+v is not a unit move", ErrMalformedResponse, i, m)
		}
	}
	return resp.Moves, nil
}

// Hint requests the next move from the given board state
func (c *Client) Hint(ctx context.Context, state engine.BoardState) (engine.Move, error) {
	var raw map[string]json.RawMessage
	if err := c.post(ctx, "/hint", state, &raw); err != nil {
		return engine.Move{}, err
	}
	for _, key := range []string{"id", "drow", "dcol"} {
		if _, ok := raw[key]; !ok {
			return engine.Move{}, fmt.Errorf("%w: hint missing %q", ErrMalformedResponse, key)
		}
	}

	var m engine.Move
	if err := decodeField(raw, "id", &m.PieceID); err != nil {
		return engine.Move{}, err
	}
	if err := decodeField(raw, "drow", &m.DRow); err != nil {
		return engine.Move{}, err
	}
	if err := decodeField(raw, "dcol", &m.DCol); err != nil {
		return engine.Move{}, err
	}
	if !m.IsUnit() {
		return engine.Move{}, fmt.Errorf("%w: hint %+v is not a unit move", ErrMalformedResponse, m)
	}
	return m, nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst *int) error {
	if err := json.Unmarshal(raw[key], dst); err != nil {
		return fmt.Errorf("%w: hint field %q: %v", ErrMalformedResponse, key, err)
	}
	return nil
}

// encodeState renders the board as {"<id>": {"row": r, "col": c}}
func encodeState(state engine.BoardState) ([]byte, error) {
	payload := make(map[string]engine.Position, len(state))
	for id, pos := range state {
		payload[strconv.Itoa(id)] = pos
	}
	return json.Marshal(payload)
}

func (c *Client) post(ctx context.Context, path string, state engine.BoardState, result interface{}) error {
	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("encode board state: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("solver request failed", "path", path, "error", err)
		return fmt.Errorf("solver %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read solver %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: errorText(body)}
		c.logger.Warn("solver rejected request", "path", path, "status", resp.StatusCode, "body", statusErr.Body)
		return statusErr
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// errorText unwraps {"error": "..."} bodies and falls back to the raw text
func errorText(body []byte) string {
	var errResp map[string]interface{}
	if err := json.Unmarshal(body, &errResp); err == nil {
		if msg, ok := errResp["error"].(string); ok {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}
