package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

// orphanStore is the slice of Storage the sweeper needs.
type orphanStore interface {
	DeleteItemsByBoard(ctx context.Context, boardID string) (int, error)
}

// Sweeper drains the cleanup queue and re-runs the item cascade for every
// recorded board id. Board deletion enqueues its record before touching the
// store, so items orphaned by a crash mid-cascade are removed on the next
// drain; in the common case the cascade already ran and the sweep is a
// no-op.
type Sweeper struct {
	store    orphanStore
	queue    queueAPI
	logger   *log.Logger
	interval time.Duration
}

// NewSweeper creates a sweeper over the storage's cleanup queue.
func NewSweeper(s *Storage, logger *log.Logger, interval time.Duration) *Sweeper {
	return newSweeper(s, s.cleanup, logger, interval)
}

func newSweeper(store orphanStore, queue queueAPI, logger *log.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, queue: queue, logger: logger, interval: interval}
}

// Run drains the queue once per interval until the context is canceled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Sweeper) drain(ctx context.Context) {
	for {
		resp, err := w.queue.DequeueMessage(ctx, nil)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.WithError(err).Error("cleanup dequeue failed")
			}
			return
		}
		if len(resp.Messages) == 0 {
			return
		}
		for _, msg := range resp.Messages {
			if msg == nil {
				continue
			}
			w.handle(ctx, msg)
		}
	}
}

// handle processes one cleanup record. The message is only deleted after the
// cascade succeeds, so a failed sweep leaves it for redelivery; malformed
// messages are dropped.
func (w *Sweeper) handle(ctx context.Context, msg *azqueue.DequeuedMessage) {
	var text string
	if msg.MessageText != nil {
		text = *msg.MessageText
	}

	var rec cleanupRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil || rec.BoardID == "" {
		w.logger.WithField("message", text).Warn("dropping malformed cleanup message")
	} else {
		removed, err := w.store.DeleteItemsByBoard(ctx, rec.BoardID)
		if err != nil {
			w.logger.WithError(err).WithField("board", rec.BoardID).Error("orphan sweep failed")
			return
		}
		if removed > 0 {
			w.logger.WithFields(log.Fields{"board": rec.BoardID, "removed": removed}).Info("removed orphaned items")
		}
	}

	if msg.MessageID == nil || msg.PopReceipt == nil {
		return
	}
	if _, err := w.queue.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil); err != nil {
		w.logger.WithError(err).Warn("cleanup message delete failed")
	}
}
