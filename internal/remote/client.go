package remote

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

	"github.com/dvloznov/ledger-sync/internal/logger"
)

// PayloadArchiver stores raw response bodies for later inspection.
type PayloadArchiver interface {
	// ArchivePayload stores body under a name derived from op and returns its URI.
	ArchivePayload(ctx context.Context, op string, body []byte) (string, error)
}

// Config configures a Client. BaseURL includes the versioned path, for
// example "http://localhost:3000/api/v0".
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Archiver   PayloadArchiver
}

// Client talks to the remote ledger over HTTP. It holds no global state;
// build one per configuration and pass it to whoever needs it.
type Client struct {
	baseURL  string
	http     *http.Client
	archiver PayloadArchiver
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("NewClient: invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:  base,
		http:     httpClient,
		archiver: cfg.Archiver,
	}, nil
}

// do performs one round trip and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("reading body: %w", err)}
	}

	log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(data)).
		Dur("duration", time.Since(start)).
		Msg("Remote ledger request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RemoteRejectedError{Op: op, StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

// decode unmarshals a body that must not be empty.
func (c *Client) decode(ctx context.Context, op string, data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: %w", op, ErrEmptyResponse)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return c.malformed(ctx, op, data, err)
	}
	return nil
}

// malformed builds a MalformedPayloadError, archiving the body when possible.
func (c *Client) malformed(ctx context.Context, op string, data []byte, cause error) error {
	merr := &MalformedPayloadError{Op: op, Body: string(data), Err: cause}
	if c.archiver == nil {
		return merr
	}

	log := logger.FromContext(ctx)
	uri, err := c.archiver.ArchivePayload(ctx, op, data)
	if err != nil {
		log.Warn().Err(err).Str("op", op).Msg("Failed to archive malformed payload")
		return merr
	}
	merr.ArchiveURI = uri
	log.Info().Str("op", op).Str("archive_uri", uri).Msg("Archived malformed payload")
	return merr
}
