package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	logginghelpers "github.com/Pjt727/homeroom/data/logging-helpers"
	"golang.org/x/time/rate"
)

// ErrTransport marks failures which never produced a usable response
var ErrTransport = errors.New("provider transport failure")

const (
	decreaseFactor = 0.8 // Reduce aggressively on failure
	increaseFactor = 0.2 // Increase conservatively on success
	minLimit       = 1   // Minimum requests per second
)

type AdaptiveRateLimiter struct {
	mu          sync.Mutex
	limit       rate.Limit
	burst       int
	limiter     *rate.Limiter
	maxIncrease rate.Limit
}

func (a *AdaptiveRateLimiter) Fail() {
	a.mu.Lock()
	defer a.mu.Unlock()

	newLimit := max(rate.Limit(float64(a.limit)*(1-decreaseFactor)), minLimit)
	a.setLimit(newLimit)
}

func (a *AdaptiveRateLimiter) Succeed() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Increase limit more conservatively, up to maxIncrease
	newLimit := min(rate.Limit(float64(a.limit)*(1+increaseFactor)), a.limit+a.maxIncrease)

	a.setLimit(newLimit)
}

func (a *AdaptiveRateLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

func (a *AdaptiveRateLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *AdaptiveRateLimiter) setLimit(newLimit rate.Limit) {
	a.limit = newLimit
	a.limiter.SetLimit(a.limit)
}

func NewAdaptiveRateLimiter(startingLimit rate.Limit, startingBurst int, maxIncrease rate.Limit) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		limit:       startingLimit,
		burst:       startingBurst,
		limiter:     rate.NewLimiter(startingLimit, startingBurst),
		mu:          sync.Mutex{},
		maxIncrease: maxIncrease,
	}
}

type RateLimiter interface {
	Succeed()
	Fail()
	Wait(context.Context) error
}

type rateLimitedRoundTripper struct {
	transport http.RoundTripper
	limiter   RateLimiter
}

func (rt *rateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	resp, err := rt.transport.RoundTrip(req)
	if err != nil {
		rt.limiter.Fail()
		return nil, err
	}

	// only throttling and server trouble should slow us down, a 404 on a
	// stale calendar is an expected answer
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		rt.limiter.Fail()
	} else {
		rt.limiter.Succeed()
	}

	return resp, nil
}

func AddRateLimiter(client *http.Client, limiter RateLimiter) {
	rt := &rateLimitedRoundTripper{
		limiter: limiter,
	}
	if client.Transport == nil {
		rt.transport = http.DefaultTransport
	} else {
		rt.transport = client.Transport
	}
	client.Transport = rt
}

type loggerRoundTripper struct {
	logger    *slog.Logger
	transport http.RoundTripper
	requestID int32
}

func (rt *loggerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// ids pair up requests and responses
	// when they are happening in parralel
	currentID := atomic.AddInt32(&rt.requestID, 1)

	rt.logger.Log(req.Context(), logginghelpers.LevelReportIO, "outgoing request", "method", req.Method, "url", req.URL.String(), "id", currentID)

	resp, err := rt.transport.RoundTrip(req)
	if err != nil {
		rt.logger.Log(req.Context(), logginghelpers.LevelReportIO, "request failed", "url", req.URL.String(), "id", currentID, "error", err)
		return nil, err
	}

	rt.logger.Log(req.Context(), logginghelpers.LevelReportIO, "response received", "status", resp.Status, "url", req.URL.String(), "id", currentID)

	return resp, nil
}

func AddHttpReporting(client *http.Client, logger *slog.Logger) {
	rt := &loggerRoundTripper{
		logger:    logger,
		requestID: 0,
	}
	if client.Transport == nil {
		rt.transport = http.DefaultTransport
	} else {
		rt.transport = client.Transport
	}
	client.Transport = rt
}

// shorthand to check if a response is within 200-299
func IsOk(r *http.Response) bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// returns an error wrapping ErrTransport for respErr, ErrNotFound for
// 404 and 410, or ErrTransport with the status for any other non "Ok"
func RespOrStatusErr(r *http.Response, respErr error) error {
	if respErr != nil {
		return errors.Join(ErrTransport, respErr)
	}
	if r.StatusCode == http.StatusNotFound || r.StatusCode == http.StatusGone {
		return fmt.Errorf("%w got status code %d", ErrNotFound, r.StatusCode)
	}
	if !IsOk(r) {
		return fmt.Errorf(
			"%w got status code %d",
			ErrTransport,
			r.StatusCode,
		)
	}
	return nil
}
