// Package services orchestrates the domain: mail ingestion, fixed expense
// recording, budget alerts and spending reports.
package services

import (
	"context"
	"fmt"

	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
	"kakeibo/internal/parser"
)

// MessageSource lists unprocessed notification mails and marks them handled.
type MessageSource interface {
	Search(ctx context.Context) ([]parser.Message, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// EntryPublisher hands a freshly appended entry position to the sync queue.
type EntryPublisher interface {
	PublishEntrySync(ctx context.Context, position int) error
}

// IngestResult counts the outcome of one ingestion run.
type IngestResult struct {
	Written int
	Skipped int
}

// Ingestor drives the card-mail pipeline: search, parse, dedup, append.
type Ingestor struct {
	source    MessageSource
	store     ledger.Store
	parser    *parser.Parser
	publisher EntryPublisher
	logger    *log.Logger
}

// NewIngestor wires the pipeline. publisher may be nil when no sync queue is
// configured.
func NewIngestor(source MessageSource, store ledger.Store, p *parser.Parser, publisher EntryPublisher, logger *log.Logger) *Ingestor {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentIngest)
	}
	return &Ingestor{source: source, store: store, parser: p, publisher: publisher, logger: logger}
}

// automated reports whether the entry came from an automatic pipeline; only
// those participate in duplicate suppression. Manual entries with the same
// date, amount and memo are legitimate (two same-priced coffees).
func automated(e core.LedgerEntry) bool {
	return e.Method == core.MethodCardAuto || e.Method == core.MethodFixedAuto
}

// Ingest runs one batch. Every fetched mail is marked processed regardless
// of outcome: a mail that produced no candidate or a duplicate would produce
// the same nothing on the next run.
func (ing *Ingestor) Ingest(ctx context.Context) (IngestResult, error) {
	var res IngestResult

	snapshot, err := ing.store.ReadAll(ctx)
	if err != nil {
		return res, fmt.Errorf("read ledger snapshot: %w", err)
	}
	idx := newAutomatedIndex(snapshot)

	messages, err := ing.source.Search(ctx)
	if err != nil {
		return res, fmt.Errorf("search messages: %w", err)
	}

	for _, msg := range messages {
		entry, ok := ing.parser.Parse(ctx, msg)
		if !ok {
			ing.markProcessed(ctx, msg.ID)
			continue
		}
		if idx.Contains(*entry) {
			res.Skipped++
			ing.logger.Info("duplicate entry skipped",
				log.FieldDate, entry.Date().String(),
				log.FieldAmountYen, entry.Amount.Yen,
				log.FieldMemo, entry.Memo)
			ing.markProcessed(ctx, msg.ID)
			continue
		}

		position, err := ing.store.Append(ctx, *entry)
		if err != nil {
			// Leave the mail unprocessed so the next run retries it.
			ing.logger.Error("append failed, leaving mail unprocessed",
				log.FieldMessageID, msg.ID, log.FieldError, err.Error())
			continue
		}
		idx.Add(*entry)
		res.Written++
		ing.publish(ctx, position)
		ing.markProcessed(ctx, msg.ID)
	}

	ing.logger.Info("ingestion complete",
		log.FieldWritten, res.Written, log.FieldSkipped, res.Skipped)
	return res, nil
}

// IngestOne parses and appends a single message, for the inbound API path.
// ok=false with a nil error means the message produced no candidate or was a
// duplicate.
func (ing *Ingestor) IngestOne(ctx context.Context, msg parser.Message) (*core.LedgerEntry, bool, error) {
	entry, ok := ing.parser.Parse(ctx, msg)
	if !ok {
		return nil, false, nil
	}
	snapshot, err := ing.store.ReadAll(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("read ledger snapshot: %w", err)
	}
	if newAutomatedIndex(snapshot).Contains(*entry) {
		return nil, false, nil
	}
	position, err := ing.store.Append(ctx, *entry)
	if err != nil {
		return nil, false, fmt.Errorf("append entry: %w", err)
	}
	entry.Position = position
	ing.publish(ctx, position)
	return entry, true, nil
}

func newAutomatedIndex(entries []core.LedgerEntry) *core.DedupIndex {
	automatedEntries := make([]core.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if automated(e) {
			automatedEntries = append(automatedEntries, e)
		}
	}
	return core.NewDedupIndex(automatedEntries)
}

func (ing *Ingestor) publish(ctx context.Context, position int) {
	if ing.publisher == nil {
		return
	}
	if err := ing.publisher.PublishEntrySync(ctx, position); err != nil {
		// The mirror is eventually consistent; a lost sync message only
		// delays it until the next full backfill.
		ing.logger.Warn("entry sync publish failed",
			log.FieldPosition, position, log.FieldError, err.Error())
	}
}

func (ing *Ingestor) markProcessed(ctx context.Context, messageID string) {
	if err := ing.source.MarkProcessed(ctx, messageID); err != nil {
		ing.logger.Warn("failed to mark message processed",
			log.FieldMessageID, messageID, log.FieldError, err.Error())
	}
}
