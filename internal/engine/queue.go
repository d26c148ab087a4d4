package engine

import (
	"context"
	"errors"
	"time"

	"gitlab.com/yelinaung/sheet-spend-bot/internal/logger"
	"gitlab.com/yelinaung/sheet-spend-bot/internal/models"
)

// ErrQueueFull is returned by Enqueue when the entry buffer is saturated.
var ErrQueueFull = errors.New("spending entry queue is full")

// appendTimeout bounds a single spreadsheet append operation.
const appendTimeout = 30 * time.Second

// EntrySink accepts parsed spending entries for asynchronous storage.
// Enqueue only acknowledges that the batch was accepted; completion is
// never awaited by the conversation flow.
type EntrySink interface {
	Enqueue(chatID int64, docRef string, worksheetID int64, entries []models.SpendingEntry) error
}

// Appender is the storage side of the queue.
type Appender interface {
	AppendEntries(ctx context.Context, docRef string, worksheetID int64, entries []models.SpendingEntry) error
}

type entryBatch struct {
	chatID      int64
	docRef      string
	worksheetID int64
	entries     []models.SpendingEntry
}

// Queue is a buffered fire-and-forget writer of spending entries.
type Queue struct {
	appender Appender
	jobs     chan entryBatch
}

// Compile-time check that Queue satisfies the engine's sink contract.
var _ EntrySink = (*Queue)(nil)

// NewQueue creates a Queue with the given buffer size.
func NewQueue(appender Appender, size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		appender: appender,
		jobs:     make(chan entryBatch, size),
	}
}

// Enqueue hands a batch to the background writer. It never blocks: when
// the buffer is full the batch is rejected with ErrQueueFull.
func (q *Queue) Enqueue(chatID int64, docRef string, worksheetID int64, entries []models.SpendingEntry) error {
	select {
	case q.jobs <- entryBatch{chatID: chatID, docRef: docRef, worksheetID: worksheetID, entries: entries}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes queued batches until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.store(job)
		}
	}
}

func (q *Queue) store(job entryBatch) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := q.appender.AppendEntries(ctx, job.docRef, job.worksheetID, job.entries); err != nil {
		logger.Log.Error().
			Err(err).
			Str("chat_hash", logger.HashChatID(job.chatID)).
			Int("entries", len(job.entries)).
			Msg("Failed to store spending entries")
		return
	}

	logger.Log.Debug().
		Str("chat_hash", logger.HashChatID(job.chatID)).
		Int("entries", len(job.entries)).
		Msg("Stored spending entries")
}
