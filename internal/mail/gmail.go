// Package mail reads card notification mails from Gmail and exposes the
// secondary lookups the merchant resolver needs.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/parser"
	"kakeibo/internal/resolver"

	gmail "google.golang.org/api/gmail/v1"
	goption "google.golang.org/api/option"
)

// Config for the Gmail source. Query selects the card notification mails to
// ingest; ProcessedLabel marks mails already turned into ledger entries so a
// re-run never double-books them.
type Config struct {
	CredentialsJSON string
	CredentialsFile string
	Query           string
	ProcessedLabel  string
	MaxMessages     int64
}

const (
	defaultProcessedLabel = "kakeibo-processed"
	defaultMaxMessages    = 200
	gmailUser             = "me"
)

// issuerClause selects the supported card issuers' notification mails.
const issuerClause = `(from:vpass.ne.jp OR from:smbc-card.com OR from:paypay-card.co.jp OR subject:カードご利用)`

// DefaultQuery matches the supported card issuers, skips already-processed
// mail, and bounds the scan to recent history.
const DefaultQuery = issuerClause + ` -label:` + defaultProcessedLabel + ` newer_than:7d`

// BackfillQuery matches the same card mails as DefaultQuery but reaches
// back to since instead of recent history.
func BackfillQuery(since time.Time) string {
	return fmt.Sprintf("%s -label:%s after:%s",
		issuerClause, defaultProcessedLabel, since.Format("2006/01/02"))
}

// purchaseSubject selects order/receipt mails for merchant resolution.
var purchaseSubject = regexp.MustCompile(`注文|購入|領収|発送|ご利用|receipt|order`)

type GmailSource struct {
	svc            *gmail.Service
	query          string
	processedLabel string
	maxMessages    int64
	logger         *log.Logger

	labelMu sync.Mutex
	labelID string
}

var _ resolver.MailSource = (*GmailSource)(nil)

func NewGmailSource(ctx context.Context, cfg Config, logger *log.Logger) (*GmailSource, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentMail)
	}
	svc, err := newGmailService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}
	if cfg.Query == "" {
		cfg.Query = DefaultQuery
	}
	if cfg.ProcessedLabel == "" {
		cfg.ProcessedLabel = defaultProcessedLabel
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	return &GmailSource{
		svc:            svc,
		query:          cfg.Query,
		processedLabel: cfg.ProcessedLabel,
		maxMessages:    cfg.MaxMessages,
		logger:         logger,
	}, nil
}

func newGmailService(ctx context.Context, cfg Config) (*gmail.Service, error) {
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
		return nil, fmt.Errorf("missing gmail credentials")
	}
	return gmail.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gmail.GmailModifyScope))
}

// Search lists unprocessed card notification mails, newest last so the
// ledger keeps chronological append order.
func (s *GmailSource) Search(ctx context.Context) ([]parser.Message, error) {
	resp, err := s.svc.Users.Messages.List(gmailUser).
		Q(s.query).MaxResults(s.maxMessages).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	s.logger.Info("card mail search complete",
		log.FieldQuery, s.query, "count", len(resp.Messages))

	out := make([]parser.Message, 0, len(resp.Messages))
	// The list endpoint returns newest first.
	for i := len(resp.Messages) - 1; i >= 0; i-- {
		m, err := s.fetchMessage(ctx, resp.Messages[i].Id)
		if err != nil {
			s.logger.Warn("failed to fetch message, skipping",
				log.FieldMessageID, resp.Messages[i].Id, log.FieldError, err.Error())
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *GmailSource) fetchMessage(ctx context.Context, id string) (parser.Message, error) {
	msg, err := s.svc.Users.Messages.Get(gmailUser, id).Format("full").Context(ctx).Do()
	if err != nil {
		return parser.Message{}, fmt.Errorf("get message: %w", err)
	}
	out := parser.Message{
		ID:       id,
		Received: time.Unix(msg.InternalDate/1000, 0),
		Body:     extractBody(msg),
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "From":
			out.Sender = h.Value
		case "Subject":
			out.Subject = h.Value
		}
	}
	return out, nil
}

// MarkProcessed labels the mail so the next search skips it.
func (s *GmailSource) MarkProcessed(ctx context.Context, messageID string) error {
	labelID, err := s.ensureLabel(ctx)
	if err != nil {
		return err
	}
	_, err = s.svc.Users.Messages.Modify(gmailUser, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("label message %s: %w", messageID, err)
	}
	return nil
}

// ensureLabel resolves the processed label, creating it on first use.
func (s *GmailSource) ensureLabel(ctx context.Context) (string, error) {
	s.labelMu.Lock()
	defer s.labelMu.Unlock()
	if s.labelID != "" {
		return s.labelID, nil
	}
	labels, err := s.svc.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("list labels: %w", err)
	}
	for _, l := range labels.Labels {
		if l.Name == s.processedLabel {
			s.labelID = l.Id
			return s.labelID, nil
		}
	}
	created, err := s.svc.Users.Labels.Create(gmailUser, &gmail.Label{
		Name:                  s.processedLabel,
		LabelListVisibility:   "labelHide",
		MessageListVisibility: "hide",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create label %s: %w", s.processedLabel, err)
	}
	s.labelID = created.Id
	return s.labelID, nil
}

// PurchaseMailAround implements resolver.MailSource: order and receipt mails
// received within the window around t, header metadata only.
func (s *GmailSource) PurchaseMailAround(ctx context.Context, t time.Time, window time.Duration) ([]resolver.MailHeader, error) {
	// Gmail after:/before: take epoch seconds.
	query := fmt.Sprintf("after:%d before:%d", t.Add(-window).Unix(), t.Add(window).Unix())
	resp, err := s.svc.Users.Messages.List(gmailUser).Q(query).MaxResults(20).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list purchase mail: %w", err)
	}
	var out []resolver.MailHeader
	for _, ref := range resp.Messages {
		msg, err := s.svc.Users.Messages.Get(gmailUser, ref.Id).
			Format("metadata").MetadataHeaders("From", "Subject").Context(ctx).Do()
		if err != nil {
			s.logger.Debug("failed to fetch purchase mail headers",
				log.FieldMessageID, ref.Id, log.FieldError, err.Error())
			continue
		}
		h := resolver.MailHeader{Received: time.Unix(msg.InternalDate/1000, 0)}
		for _, hdr := range msg.Payload.Headers {
			switch hdr.Name {
			case "From":
				h.Sender = hdr.Value
			case "Subject":
				h.Subject = hdr.Value
			}
		}
		if !purchaseSubject.MatchString(h.Subject) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func extractBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if body := decodePart(msg.Payload, "text/plain"); body != "" {
		return body
	}
	if body := decodePart(msg.Payload, "text/html"); body != "" {
		return stripTags(body)
	}
	// Single-part messages with an unusual content type carry the data on
	// the payload itself.
	if len(msg.Payload.Parts) == 0 {
		return decodeBody(msg.Payload)
	}
	return ""
}

// decodePart walks the MIME tree for the first part of the wanted type.
func decodePart(p *gmail.MessagePart, mimeType string) string {
	if p.MimeType == mimeType {
		if body := decodeBody(p); body != "" {
			return body
		}
	}
	for _, child := range p.Parts {
		if body := decodePart(child, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(p *gmail.MessagePart) string {
	if p.Body == nil || p.Body.Data == "" {
		return ""
	}
	b, err := base64.URLEncoding.DecodeString(p.Body.Data)
	if err != nil {
		return ""
	}
	return string(b)
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(html string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(html, " "))
}
