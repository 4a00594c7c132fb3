// Package worker mirrors ledger entries from the local store to the
// spreadsheet backend, driven by the sync queue.
package worker

import (
	"context"
	"fmt"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	"kakeibo/internal/log"
)

// SyncWorker copies entries appended to the local store into the remote
// spreadsheet ledger. Mirroring is idempotent: an entry whose (date,
// amount, memo) already exists remotely is skipped, so redelivered queue
// messages never double-book.
type SyncWorker struct {
	local  ledger.Store
	remote ledger.Store
	logger *log.Logger
}

func NewSyncWorker(local, remote ledger.Store, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	}
	return &SyncWorker{local: local, remote: remote, logger: logger}
}

// HandleEntrySync mirrors the entry at the message's position. Unknown
// positions are dropped (the entry was deleted before the worker got to
// it); remote failures are returned so the message is redelivered.
func (w *SyncWorker) HandleEntrySync(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	entries, err := w.local.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read local ledger: %w", err)
	}
	if msg.Position < 1 || msg.Position > len(entries) {
		w.logger.Warn("sync message for unknown position, dropping",
			log.FieldPosition, msg.Position)
		return nil
	}
	entry := entries[msg.Position-1]

	remote, err := w.remote.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("read remote ledger: %w", err)
	}
	if core.NewDedupIndex(remote).Contains(entry) {
		w.logger.Info("entry already mirrored, skipping",
			log.FieldPosition, msg.Position)
		return nil
	}
	return w.mirror(ctx, entry)
}

// StartupSync mirrors local entries that are missing remotely, catching up
// on messages lost while the worker was down. Returns the number written.
func (w *SyncWorker) StartupSync(ctx context.Context) (int, error) {
	entries, err := w.local.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read local ledger: %w", err)
	}
	remote, err := w.remote.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("read remote ledger: %w", err)
	}
	idx := core.NewDedupIndex(remote)

	written := 0
	for _, e := range entries {
		if idx.Contains(e) {
			continue
		}
		if err := w.mirror(ctx, e); err != nil {
			return written, err
		}
		idx.Add(e)
		written++
	}
	if written > 0 {
		w.logger.Info("startup sync complete",
			log.FieldOperation, log.OpStartup,
			log.FieldWritten, written)
	}
	return written, nil
}

func (w *SyncWorker) mirror(ctx context.Context, entry core.LedgerEntry) error {
	position, err := w.remote.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append to remote ledger: %w", err)
	}
	w.logger.Info("entry mirrored",
		log.FieldOperation, log.OpSync,
		log.FieldPosition, position,
		log.FieldMemo, entry.Memo,
		log.FieldAmountYen, entry.Amount.Yen)
	return nil
}
