// Package client talks to the series API over HTTP. A Client is both the
// remote document store and the authentication service seen by the sync
// controller and the CLI.
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
	"sync"
	"time"

	"github.com/rs/zerolog"

	"series-tracker/logging"
	"series-tracker/models"
)

// APIError is a non-2xx response from the API. It unwraps to the matching
// models sentinel so callers can use errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if err := models.ErrorForCode(e.Code); err != nil {
		return err
	}
	switch e.Status {
	case http.StatusBadRequest:
		return models.ErrInvalidInput
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrUnauthorized
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusTooManyRequests:
		return models.ErrRateLimited
	}
	return nil
}

// Transient reports whether retrying the request later could succeed
func (e *APIError) Transient() bool {
	return e.Status >= http.StatusInternalServerError || e.Status == http.StatusTooManyRequests
}

// Client is an HTTP client for the series API
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for the API at baseURL. Every request is bounded by
// timeout; zero disables the limit.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logging.WithComponent("client"),
	}
}

// SetToken sets the bearer token sent with document requests
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func documentsPath(collection string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/documents"
}

func documentPath(collection, id string) string {
	return documentsPath(collection) + "/" + url.PathEscape(id)
}

// FetchAll returns every series in the collection
func (c *Client) FetchAll(ctx context.Context, collection string) ([]models.Series, error) {
	var list []models.Series
	if err := c.do(ctx, http.MethodGet, documentsPath(collection), nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Series{}
	}
	return list, nil
}

// Insert stores a new series and returns it with its assigned id
func (c *Client) Insert(ctx context.Context, collection string, in models.SeriesInput) (models.Series, error) {
	var created models.Series
	if err := c.do(ctx, http.MethodPost, documentsPath(collection), in, &created); err != nil {
		return models.Series{}, err
	}
	if created.ID == "" {
		return models.Series{}, errors.New("insert: response has no id")
	}
	return created, nil
}

// Update overwrites the series stored under id
func (c *Client) Update(ctx context.Context, collection, id string, s models.Series) error {
	return c.do(ctx, http.MethodPut, documentPath(collection, id), s, nil)
}

// Delete removes the series stored under id
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, documentPath(collection, id), nil, nil)
}

// SignUp registers an account and keeps its token for later requests
func (c *Client) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	return c.authenticate(ctx, "/api/auth/signup", email, password)
}

// SignIn signs in and keeps the token for later requests
func (c *Client) SignIn(ctx context.Context, email, password string) (models.Identity, error) {
	return c.authenticate(ctx, "/api/auth/signin", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (models.Identity, error) {
	var identity models.Identity
	creds := models.Credentials{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, path, creds, &identity); err != nil {
		return models.Identity{}, err
	}
	c.SetToken(identity.Token)
	return identity, nil
}

// SignOut revokes the current token. The local token is dropped even when
// the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil)
	c.SetToken("")
	if errors.Is(err, models.ErrUnauthorized) {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body models.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}
	return apiErr
}
