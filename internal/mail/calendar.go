package mail

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/resolver"

	calendar "google.golang.org/api/calendar/v3"
	goption "google.golang.org/api/option"
)

// CalendarSource feeds the merchant resolver with events near the
// transaction time.
type CalendarSource struct {
	svc        *calendar.Service
	calendarID string
	logger     *log.Logger
}

var _ resolver.EventSource = (*CalendarSource)(nil)

func NewCalendarSource(ctx context.Context, cfg Config, calendarID string, logger *log.Logger) (*CalendarSource, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentMail)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	svc, err := newCalendarService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &CalendarSource{svc: svc, calendarID: calendarID, logger: logger}, nil
}

func newCalendarService(ctx context.Context, cfg Config) (*calendar.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, fmt.Errorf("missing calendar credentials")
	}
	return calendar.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(calendar.CalendarReadonlyScope))
}

// EventsAround implements resolver.EventSource. All-day events are skipped;
// a day-long event says nothing about where a purchase happened.
func (c *CalendarSource) EventsAround(ctx context.Context, t time.Time, window time.Duration) ([]resolver.Event, error) {
	resp, err := c.svc.Events.List(c.calendarID).
		TimeMin(t.Add(-window).Format(time.RFC3339)).
		TimeMax(t.Add(window).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]resolver.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Start == nil || item.Start.DateTime == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, item.Start.DateTime)
		if err != nil {
			c.logger.Debug("unparsable event start, skipping",
				log.FieldError, err.Error())
			continue
		}
		out = append(out, resolver.Event{Title: item.Summary, Start: start})
	}
	return out, nil
}
