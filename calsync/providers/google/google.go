// Package google pushes calendars to Google Calendar through the v3 REST API.
//
// Student calendars are real secondary calendars owned by the authorized
// account. Combined calendars are never created remotely, instead the id is an
// embed url which layers every student calendar, so the combined view always
// shows exactly what the student calendars hold.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Pjt727/homeroom/calsync/providers"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	ProviderName = "google"
	embedBase    = "https://calendar.google.com/calendar/embed"
	pageSize     = 250
)

type Options struct {
	// should already carry credentials, see NewHTTPClient
	HTTPClient *http.Client
	// overrides the api base url, used to point at googletest servers
	Endpoint string
	// zone new calendars are created in
	TimeZone string
	Logger   *slog.Logger
}

type Provider struct {
	svc      *calendar.Service
	timeZone string
	logger   *slog.Logger
}

func New(ctx context.Context, opts Options) (*Provider, error) {
	if opts.HTTPClient == nil {
		return nil, errors.New("google provider needs an authorized http client")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TimeZone == "" {
		opts.TimeZone = "UTC"
	}
	clientOpts := []option.ClientOption{option.WithHTTPClient(opts.HTTPClient)}
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		clientOpts = append(clientOpts, option.WithEndpoint(endpoint))
	}
	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Provider{
		svc:      svc,
		timeZone: opts.TimeZone,
		logger:   opts.Logger.With("provider", ProviderName),
	}, nil
}

func (p *Provider) Name() string {
	return ProviderName
}

// wraps api errors so callers can tell a missing calendar apart from a failure
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%s: %w: %w", op, providers.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (p *Provider) CreateCalendar(ctx context.Context, name string, sources []string) (string, error) {
	if sources != nil {
		return EmbedURL(p.timeZone, sources), nil
	}
	created, err := p.svc.Calendars.Insert(&calendar.Calendar{
		Summary:  name,
		TimeZone: p.timeZone,
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("insert calendar", err)
	}
	p.logger.Info("created calendar", "id", created.Id, "name", name)
	return created.Id, nil
}

func (p *Provider) CalendarExists(ctx context.Context, calendarID string) (bool, error) {
	if sources, ok := ParseEmbedURL(calendarID); ok {
		for _, src := range sources {
			exists, err := p.calendarExists(ctx, src)
			if err != nil || !exists {
				return false, err
			}
		}
		return true, nil
	}
	return p.calendarExists(ctx, calendarID)
}

func (p *Provider) calendarExists(ctx context.Context, calendarID string) (bool, error) {
	_, err := p.svc.Calendars.Get(calendarID).Context(ctx).Do()
	err = wrapErr("get calendar", err)
	if providers.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) ClearEvents(ctx context.Context, calendarID string) error {
	if _, ok := ParseEmbedURL(calendarID); ok {
		return nil
	}
	ids := make([]string, 0)
	err := p.svc.Events.List(calendarID).
		ShowDeleted(false).
		MaxResults(pageSize).
		Context(ctx).
		Pages(ctx, func(page *calendar.Events) error {
			for _, item := range page.Items {
				ids = append(ids, item.Id)
			}
			return nil
		})
	if err != nil {
		return wrapErr("list events", err)
	}
	for _, id := range ids {
		err := p.svc.Events.Delete(calendarID, id).Context(ctx).Do()
		// already gone is what we wanted
		if err = wrapErr("delete event", err); err != nil && !providers.IsNotFound(err) {
			return err
		}
	}
	p.logger.Debug("cleared calendar", "id", calendarID, "events", len(ids))
	return nil
}

func (p *Provider) PushEvent(ctx context.Context, calendarID string, ev providers.Event) (string, error) {
	if _, ok := ParseEmbedURL(calendarID); ok {
		return "", errors.New("combined calendars only reference other calendars")
	}
	timeZone := ev.TimeZone
	if timeZone == "" {
		timeZone = p.timeZone
	}
	created, err := p.svc.Events.Insert(calendarID, &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		ColorId:     ev.ColorID,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: timeZone,
		},
		Recurrence: ev.Recurrence,
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapErr("insert event", err)
	}
	return created.Id, nil
}

// EmbedURL layers every source calendar in one embeddable view
func EmbedURL(timeZone string, sources []string) string {
	values := url.Values{}
	values.Set("ctz", timeZone)
	for _, src := range sources {
		values.Add("src", src)
	}
	return embedBase + "?" + values.Encode()
}

// ParseEmbedURL returns the source calendars of an EmbedURL
func ParseEmbedURL(id string) ([]string, bool) {
	if !strings.HasPrefix(id, embedBase+"?") {
		return nil, false
	}
	u, err := url.Parse(id)
	if err != nil {
		return nil, false
	}
	return u.Query()["src"], true
}
