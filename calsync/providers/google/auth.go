package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Pjt727/homeroom/calsync/providers"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
)

type OAuthOptions struct {
	ClientID     string
	ClientSecret string
	// json encoded oauth2.Token holding a refresh token
	TokenFile string
}

func OAuthConfig(opts OAuthOptions) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
}

func LoadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, errors.New("no google token file configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("could not parse token file %s: %w", path, err)
	}
	return &token, nil
}

// NewHTTPClient authorizes with the stored token then throttles and reports
// every request. requestsPerSecond is only the starting rate, it adapts to
// the responses it gets.
func NewHTTPClient(ctx context.Context, opts OAuthOptions, requestsPerSecond float64, logger *slog.Logger) (*http.Client, error) {
	token, err := LoadToken(opts.TokenFile)
	if err != nil {
		return nil, err
	}
	client := OAuthConfig(opts).Client(ctx, token)
	Instrument(client, requestsPerSecond, logger)
	return client, nil
}

// Instrument adds the adaptive limiter and io reporting round trippers
func Instrument(client *http.Client, requestsPerSecond float64, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Limit(requestsPerSecond)
	var limiter providers.RateLimiter = providers.NewAdaptiveRateLimiter(limit, 1, limit)
	providers.AddRateLimiter(client, limiter)
	providers.AddHttpReporting(client, logger.With("provider", ProviderName))
}
