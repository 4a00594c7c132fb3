// Package resolver improves generic merchant labels using secondary
// sources: calendar events around the transaction time, then purchase
// confirmation mails. It is best-effort only; every internal error degrades
// to "not found" and never fails the ingestion pipeline.
package resolver

import (
	"context"
	"regexp"
	"strings"
	"time"

	"kakeibo/internal/log"
)

type (
	// Event is a calendar entry near the transaction time.
	Event struct {
		Title string
		Start time.Time
	}

	// MailHeader is a mail near the transaction time, sender in RFC 5322
	// display form ("Name <addr>") when available.
	MailHeader struct {
		Sender   string
		Subject  string
		Received time.Time
	}

	// EventSource lists calendar events within a window around t.
	EventSource interface {
		EventsAround(ctx context.Context, t time.Time, window time.Duration) ([]Event, error)
	}

	// MailSource lists purchase-confirmation mails within a window around t.
	MailSource interface {
		PurchaseMailAround(ctx context.Context, t time.Time, window time.Duration) ([]MailHeader, error)
	}
)

// Lookup windows around the transaction timestamp.
const (
	EventWindow = 2 * time.Hour
	MailWindow  = 1 * time.Hour
)

var (
	// genericEventTitle drops calendar entries that are organizational
	// noise rather than a place or activity.
	genericEventTitle = regexp.MustCompile(`^(予定|TODO|タスク|リマインダー)$`)
	// systemSender drops no-reply style senders whose display name says
	// nothing about the shop.
	systemSender = regexp.MustCompile(`info|noreply|no-reply|support|mail`)
	displayName  = regexp.MustCompile(`"?([^"<]+)"?\s*<`)
)

const subjectMaxRunes = 30

// Resolver tries the ordered secondary sources. Either source may be nil.
type Resolver struct {
	events EventSource
	mail   MailSource
	logger *log.Logger
}

func New(events EventSource, mail MailSource, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentResolver)
	}
	return &Resolver{events: events, mail: mail, logger: logger}
}

// Resolve returns the first non-trivial merchant candidate found around the
// transaction time, or ok=false when nothing usable turned up.
func (r *Resolver) Resolve(ctx context.Context, at time.Time) (string, bool) {
	if label, ok := r.fromEvents(ctx, at); ok {
		return label, true
	}
	if label, ok := r.fromMail(ctx, at); ok {
		return label, true
	}
	return "", false
}

func (r *Resolver) fromEvents(ctx context.Context, at time.Time) (string, bool) {
	if r.events == nil {
		return "", false
	}
	events, err := r.events.EventsAround(ctx, at, EventWindow)
	if err != nil {
		r.logger.Debug("event lookup failed, skipping", log.FieldError, err.Error())
		return "", false
	}
	for _, ev := range events {
		title := strings.TrimSpace(ev.Title)
		if len([]rune(title)) > 1 && !genericEventTitle.MatchString(title) {
			return title, true
		}
	}
	return "", false
}

func (r *Resolver) fromMail(ctx context.Context, at time.Time) (string, bool) {
	if r.mail == nil {
		return "", false
	}
	mails, err := r.mail.PurchaseMailAround(ctx, at, MailWindow)
	if err != nil {
		r.logger.Debug("mail lookup failed, skipping", log.FieldError, err.Error())
		return "", false
	}
	for _, m := range mails {
		if absDuration(m.Received.Sub(at)) > MailWindow {
			continue
		}
		if name, ok := senderName(m.Sender); ok {
			return name, true
		}
		subject := strings.TrimSpace(m.Subject)
		if len([]rune(subject)) > 2 {
			return truncateRunes(subject, subjectMaxRunes), true
		}
	}
	return "", false
}

// senderName extracts a usable display name from a sender header.
func senderName(sender string) (string, bool) {
	m := displayName.FindStringSubmatch(sender)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if len([]rune(name)) <= 1 || systemSender.MatchString(strings.ToLower(name)) {
		return "", false
	}
	return name, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
