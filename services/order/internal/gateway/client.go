package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-orchestrator/pkg/breaker"
	"github.com/sakashimaa/order-orchestrator/pkg/mylogger"
	"github.com/sakashimaa/order-orchestrator/services/order/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type ClientConfig struct {
	BaseURL     string
	CallTimeout time.Duration
	Breaker     breaker.Settings
}

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}

	return uuid.NewString()
}

func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// StatusError is a non-2xx answer from a remote dependency.
type StatusError struct {
	Dependency string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Dependency, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.ErrInsufficientStock
	default:
		return nil
	}
}

// answered reports whether the dependency replied with a client-side rejection.
// Such replies prove the dependency is healthy and never trip its breaker.
// 408 and 429 count as failures.
func answered(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	switch statusErr.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}

	return statusErr.StatusCode < http.StatusInternalServerError
}

type remoteClient struct {
	dependency string
	baseURL    string
	timeout    time.Duration
	http       *http.Client
	breaker    *breaker.Breaker
	logger     *zap.Logger
}

func newRemoteClient(dependency string, cfg ClientConfig, httpClient *http.Client, logger *zap.Logger) *remoteClient {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	return &remoteClient{
		dependency: dependency,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		timeout:    cfg.CallTimeout,
		http:       httpClient,
		breaker: breaker.New(dependency, cfg.Breaker, logger, func(err error) bool {
			return err == nil || answered(err)
		}),
		logger: logger,
	}
}

// call runs one request through the breaker under the per-call timeout and decodes the body into out.
func (c *remoteClient) call(ctx context.Context, method, path string, query url.Values, out any) error {
	_, err := breaker.Execute(c.breaker, func() (struct{}, error) {
		callCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		target := c.baseURL + path
		if len(query) > 0 {
			target += "?" + query.Encode()
		}

		req, err := http.NewRequestWithContext(callCtx, method, target, nil)
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set(requestIDHeader, requestID(ctx))

		resp, err := c.http.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				mylogger.Debug(ctx, c.logger, "Failed to close response body", zap.Error(err))
			}
		}()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return struct{}{}, err
		}

		if resp.StatusCode >= http.StatusMultipleChoices {
			return struct{}{}, &StatusError{
				Dependency: c.dependency,
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(body)),
			}
		}

		if out == nil {
			return struct{}{}, nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return struct{}{}, fmt.Errorf("decode %s response: %w", c.dependency, err)
		}

		return struct{}{}, nil
	})

	return err
}

func (c *remoteClient) Breaker() *breaker.Breaker {
	return c.breaker
}

// unavailable wraps a failed mutation so callers see which dependency and operation broke.
func (c *remoteClient) unavailable(op string, err error) error {
	return &domain.DependencyError{
		Dependency: c.dependency,
		Op:         op,
		Err:        fmt.Errorf("%w: %w", domain.ErrRemoteUnavailable, err),
	}
}
