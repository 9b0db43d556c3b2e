// Package contentful is a read-only client for the Contentful Delivery and
// Preview REST APIs. It fetches every entry of a content type, resolves
// linked assets and entries from the response includes, and returns the raw
// field mappings as content.Entry values.
package contentful

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/eringen/folio/content"
)

const (
	// DeliveryBaseURL serves published content.
	DeliveryBaseURL = "https://cdn.contentful.com"
	// PreviewBaseURL serves drafts; it requires a preview token.
	PreviewBaseURL = "https://preview.contentful.com"
	// DefaultEnvironment is the space environment used when none is set.
	DefaultEnvironment = "master"

	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 2
	includeDepth      = 2
	pageSize          = 1000
	maxErrorBody      = 4 << 10
)

var (
	// ErrNotFound is returned when the space, environment or content type
	// does not exist.
	ErrNotFound = errors.New("contentful: not found")
	// ErrUnauthorized is returned when the access token is rejected.
	ErrUnauthorized = errors.New("contentful: unauthorized")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config configures a Client.
type Config struct {
	SpaceID     string
	Environment string
	AccessToken string
	// BaseURL defaults to DeliveryBaseURL.
	BaseURL string
	Timeout time.Duration
	// MaxRetries bounds retries of transient failures. Zero selects the
	// default; a negative value disables retrying.
	MaxRetries int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client fetches entries from one space environment.
type Client struct {
	spaceID     string
	environment string
	token       string
	baseURL     string
	maxRetries  int
	http        *http.Client
	breaker     *gobreaker.CircuitBreaker
	log         *zap.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpaceID) == "" {
		return nil, errors.New("contentful: space id is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, errors.New("contentful: access token is required")
	}
	c := &Client{
		spaceID:     cfg.SpaceID,
		environment: cfg.Environment,
		token:       cfg.AccessToken,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		maxRetries:  cfg.MaxRetries,
		http:        cfg.HTTPClient,
		log:         cfg.Logger,
	}
	if c.environment == "" {
		c.environment = DefaultEnvironment
	}
	if c.baseURL == "" {
		c.baseURL = DeliveryBaseURL
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	} else if cfg.MaxRetries == 0 {
		c.maxRetries = defaultMaxRetries
	}
	if c.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "contentful:" + c.spaceID,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Caller mistakes say nothing about the health of the API.
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return c, nil
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchEntries returns every entry of contentType with links resolved. An
// unknown content type yields an empty slice, as the API does.
func (c *Client) FetchEntries(ctx context.Context, contentType string) ([]content.Entry, error) {
	if strings.TrimSpace(contentType) == "" {
		return nil, errors.New("contentful: content type is required")
	}
	var entries []content.Entry
	for skip := 0; ; {
		page, err := c.fetchPage(ctx, contentType, skip)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page.entries()...)
		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}
	c.log.Debug("fetched entries", zap.String("content_type", contentType), zap.Int("count", len(entries)))
	return entries, nil
}

func (c *Client) fetchPage(ctx context.Context, contentType string, skip int) (*collection, error) {
	var page *collection
	operation := func() error {
		res, err := c.breaker.Execute(func() (interface{}, error) {
			return c.get(ctx, contentType, skip)
		})
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			c.log.Warn("contentful request failed",
				zap.String("content_type", contentType), zap.Int("skip", skip), zap.Error(err))
			return err
		}
		page = res.(*collection)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx))
	if err != nil {
		return nil, fmt.Errorf("contentful: fetch %s: %w", contentType, err)
	}
	return page, nil
}

func (c *Client) get(ctx context.Context, contentType string, skip int) (*collection, error) {
	endpoint, err := url.JoinPath(c.baseURL, "spaces", c.spaceID, "environments", c.environment, "entries")
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	q := req.URL.Query()
	q.Set("content_type", contentType)
	q.Set("include", strconv.Itoa(includeDepth))
	q.Set("limit", strconv.Itoa(pageSize))
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("contentful: status %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	case resp.StatusCode >= 400:
		return nil, backoff.Permanent(fmt.Errorf("contentful: status %d: %s", resp.StatusCode, readErrorBody(resp.Body)))
	}

	var page collection
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("contentful: decode response: %w", err)
	}
	return &page, nil
}

func readErrorBody(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if json.Unmarshal(raw, &body) == nil && body.Message != "" {
		return body.Message
	}
	return strings.TrimSpace(string(raw))
}
