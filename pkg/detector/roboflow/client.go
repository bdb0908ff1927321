// Package roboflow provides a detector.Client implementation backed by the
// hosted Roboflow inference API (detect.roboflow.com).
package roboflow

import (
	"agroscan/pkg/detector"
	"agroscan/pkg/domain"
	"agroscan/pkg/logger"
	"agroscan/pkg/metrics"
	"agroscan/pkg/serrors"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public Roboflow object-detection endpoint.
const DefaultBaseURL = "https://detect.roboflow.com"

const (
	opQuery   = "query"
	opForward = "forward"

	// maxErrorBody bounds how much of a failed upstream body ends up in errors.
	maxErrorBody = 512
)

// Options identify the hosted model and the credentials used to call it.
type Options struct {
	// BaseURL is the API root; DefaultBaseURL when empty.
	BaseURL string
	// Model is the project identifier, e.g. "glassfood-ghwjx".
	Model string
	// Version is the trained model version, e.g. "1".
	Version string
	// APIKey is sent as the api_key query parameter.
	APIKey string
}

// Client talks to the Roboflow inference API and fulfills the detector.Client
// interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client      // httpClient performs HTTP requests to Roboflow
	options    Options           // options select the model and credentials
	metrics    *metrics.Upstream // metrics may be nil
}

// Ensure Client conforms to the detector.Client interface at compile time.
var _ detector.Client = (*Client)(nil)

// New constructs a Client that uses the provided http.Client and options. m
// may be nil to skip recording metrics.
func New(httpClient *http.Client, options Options, m *metrics.Upstream) *Client {
	if options.BaseURL == "" {
		options.BaseURL = DefaultBaseURL
	}
	options.BaseURL = strings.TrimRight(options.BaseURL, "/")

	return &Client{
		httpClient: httpClient,
		options:    options,
		metrics:    m,
	}
}

// Endpoint returns the model URL with api_key and the extra query values set.
func (c *Client) Endpoint(extra url.Values) string {
	q := url.Values{}
	q.Set("api_key", c.options.APIKey)
	for k, v := range extra {
		q[k] = v
	}

	return c.options.BaseURL + "/" + url.PathEscape(c.options.Model) + "/" +
		url.PathEscape(c.options.Version) + "?" + q.Encode()
}

// Query sends the image (URL or inline data) in the image query parameter of a
// GET request and returns the payload unmodified.
func (c *Client) Query(ctx context.Context, in detector.Input) (domain.RawResult, error) {
	if in.Empty() {
		return nil, serrors.With(serrors.ErrBadRequest, "image or image URL is required")
	}

	value := in.Image
	if in.ImageURL != "" {
		value = in.ImageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint(url.Values{"image": {value}}), nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not create request")
	}

	return c.do(ctx, opQuery, req)
}

// Forward posts {"image_url": ...} when a URL is present, {"image": ...}
// otherwise, and returns the payload unmodified.
func (c *Client) Forward(ctx context.Context, in detector.Input) (domain.RawResult, error) {
	if in.Empty() {
		return nil, serrors.With(serrors.ErrBadRequest, "image or image URL is required")
	}

	var e jx.Encoder
	e.ObjStart()
	if in.ImageURL != "" {
		e.FieldStart("image_url")
		e.Str(in.ImageURL)
	} else {
		e.FieldStart("image")
		e.Str(in.Image)
	}
	e.ObjEnd()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(nil), bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "could not create request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(ctx, opForward, req)
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) (domain.RawResult, error) {
	ctx = logger.WithFields(ctx, zap.String("operation", op), zap.String("model", c.options.Model))
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, status, err := c.roundTrip(req)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeFailure
		logger.Error(ctx, "detection request failed", zap.Int("status", status), zap.Error(err))
	}
	c.metrics.Record(ctx, op, outcome, time.Since(start))

	return res, err
}

func (c *Client) roundTrip(req *http.Request) (domain.RawResult, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = redact(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, serrors.Wrap(serrors.ErrTimeout, err, "detection request timed out")
		}

		return nil, 0, serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, serrors.Wrap(serrors.ErrUnavailable, err, "could not read response body")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, resp.StatusCode, serrors.With(serrors.ErrRateLimited, "rate limited: %s", snippet(b))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, resp.StatusCode, serrors.With(serrors.ErrUnauthorized, "rejected credentials: %s", snippet(b))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, resp.StatusCode, serrors.With(serrors.ErrUnavailable,
			"detection failed with status %d: %s", resp.StatusCode, snippet(b))
	}

	if !jx.Valid(b) {
		return nil, resp.StatusCode, serrors.With(serrors.ErrInternal, "response is not valid JSON: %s", snippet(b))
	}

	return domain.RawResult(b), resp.StatusCode, nil
}

// redact strips the query string (and with it the API key) from URLs carried
// by transport errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			ue.URL = u.String()
		}
	}

	return err
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}

	return s
}
