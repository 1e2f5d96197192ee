package api

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mldash/internal/errors"
	"mldash/internal/logging"
	"mldash/ports"

	"github.com/sirupsen/logrus"
)

const (
	pathUpload  = "/api/upload"
	pathList    = "/api/upload/list"
	pathClean   = "/api/clean"
	pathHealth  = "/health"
	serviceName = "dataset backend"
)

// Client talks to the dataset backend over its JSON API
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logrus.FieldLogger
}

var _ ports.BackendPort = (*Client)(nil)

// NewClient creates a backend client. timeout bounds every request,
// including the body transfer.
func NewClient(baseURL string, timeout time.Duration, log logrus.FieldLogger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: logging.Component(log, "api"),
	}
}

// BaseURL returns the backend address the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) endpoint(path string, segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	b.WriteString(path)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// buildRequest creates a request with the JSON headers the backend expects
func (c *Client) buildRequest(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends req and returns the body of a 2xx response. Anything else
// becomes an *APIError carrying the user-facing message.
func (c *Client) do(req *http.Request) ([]byte, error) {
	log := c.log.WithFields(logrus.Fields{"method": req.Method, "url": req.URL.String()})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithError(err).Warn("backend unreachable")
		return nil, errors.ExternalServiceError(serviceName, &APIError{
			Message: unreachableMessage(c.baseURL),
			Cause:   err,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError(serviceName, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "failed to read backend response",
			Cause:      err,
		})
	}

	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "duration": time.Since(start)})
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: UserMessage(resp.StatusCode, body)}
		log.WithField("error", apiErr.Message).Warn("backend returned an error")
		if resp.StatusCode == http.StatusNotFound {
			return nil, errors.WithCode(errors.CodeNotFound, apiErr)
		}
		return nil, errors.ExternalServiceError(serviceName, apiErr)
	}
	log.Debug("backend response")
	return body, nil
}

// Health reports whether the backend answers its health check
func (c *Client) Health(ctx context.Context) error {
	req, err := c.buildRequest(ctx, http.MethodGet, c.endpoint(pathHealth), nil, "")
	if err != nil {
		return err
	}
	_, err = c.do(req)
	return err
}
