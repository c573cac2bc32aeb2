package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"semqa/internal/domain"
	"semqa/internal/resilience"
	"semqa/internal/stream"
)

// Config configures the research stream client.
type Config struct {
	BaseURL    string
	Path       string
	UseGRPC    bool
	Timeout    time.Duration
	Resilience resilience.Config
}

// Client opens research streams against the QA backend.
type Client struct {
	cfg    Config
	http   *http.Client
	exec   *resilience.Executor
	logger *zap.Logger
}

// NewClient creates a stream client. Timeout bounds connection setup and
// response headers only; an open stream is never timed out.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Path == "" {
		cfg.Path = "/v1/datasets/qa"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: t}).DialContext,
		ResponseHeaderTimeout: t,
		TLSHandshakeTimeout:   t,
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: tr},
		exec:   resilience.NewExecutor(cfg.Resilience, logger.Named("resilience")),
		logger: logger,
	}
}

// URL builds the request URL for params. Filters are passed through as given.
func (c *Client) URL(params domain.SearchParams) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.Path)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := base.Query()
	q.Set("question", params.Question)
	if c.cfg.UseGRPC {
		q.Set("use_grpc", "true")
	}
	f := params.Filters
	for _, v := range f.Countries {
		q.Add("countries", v)
	}
	for _, v := range f.States {
		q.Add("states", v)
	}
	for _, v := range f.Cities {
		q.Add("cities", v)
	}
	if f.YearFrom != 0 {
		q.Set("year_from", strconv.Itoa(f.YearFrom))
	}
	if f.YearTo != 0 {
		q.Set("year_to", strconv.Itoa(f.YearTo))
	}
	if f.EmbeddingModel != "" {
		q.Set("embedding_model", f.EmbeddingModel)
	}
	q.Set("use_multi_query", strconv.FormatBool(params.UseMultiQuery))
	q.Set("use_llm_interpretation", strconv.FormatBool(params.UseLLMInterpretation))
	base.RawQuery = q.Encode()
	return base.String(), nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "unexpected status: " + e.status }

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF)
}

// Open establishes the stream. Failures wrap stream.ErrConnect.
func (c *Client) Open(ctx context.Context, params domain.SearchParams) (*Subscription, error) {
	target, err := c.URL(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrConnect, err)
	}
	sctx, cancel := context.WithCancel(ctx)
	var resp *http.Response
	err = c.exec.Execute(sctx, "open_stream", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		r, err := c.http.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode < 200 || r.StatusCode >= 300 {
			_ = r.Body.Close()
			return &statusError{code: r.StatusCode, status: r.Status}
		}
		resp = r
		return nil
	}, retryable)
	if err != nil {
		cancel()
		c.logger.Error("stream not established", zap.String("url", target), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", stream.ErrConnect, err)
	}
	c.logger.Info("stream opened", zap.String("url", target))

	sub := &Subscription{
		frames: make(chan string),
		cancel: cancel,
	}
	go sub.run(sctx, resp.Body)
	return sub, nil
}

// Subscription is one open research stream.
type Subscription struct {
	frames chan string
	err    error
	cancel context.CancelFunc
	once   sync.Once
}

func (s *Subscription) run(ctx context.Context, body io.ReadCloser) {
	defer body.Close()
	err := readFrames(body, func(frame string) bool {
		select {
		case s.frames <- frame:
			return true
		case <-ctx.Done():
			return false
		}
	})
	switch {
	case ctx.Err() != nil:
		s.err = stream.ErrClosed
	case err == nil || errors.Is(err, io.EOF):
		s.err = stream.ErrClosed
	default:
		s.err = fmt.Errorf("%w: %v", stream.ErrInterrupted, err)
	}
	close(s.frames)
}

// Next blocks for the next frame. When the stream ends it returns the
// terminal error: stream.ErrClosed on a normal or manual close, an error
// wrapping stream.ErrInterrupted otherwise.
func (s *Subscription) Next() (string, error) {
	frame, ok := <-s.frames
	if !ok {
		return "", s.err
	}
	return frame, nil
}

// Close stops the stream. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
