package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/vision-grader/internal/engine"
	"github.com/nulzo/vision-grader/internal/store"
	"github.com/nulzo/vision-grader/internal/store/model"
	"go.uber.org/zap"
)

const (
	defaultBufferSize = 10000
	defaultBatchSize  = 50
	defaultFlushTime  = 5 * time.Second
)

// Ingestor handles the asynchronous persistence of call records. It
// satisfies engine.Recorder.
type Ingestor interface {
	Record(rec *engine.CallRecord)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	logChan   chan *model.CallLog
	batchSize int
	flushTime time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

type Option func(*ingestor)

func WithBatchSize(n int) Option {
	return func(i *ingestor) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(i *ingestor) {
		if d > 0 {
			i.flushTime = d
		}
	}
}

func NewIngestor(logger *zap.Logger, repo store.Repository, opts ...Option) Ingestor {
	i := &ingestor{
		logger:    logger,
		repo:      repo,
		logChan:   make(chan *model.CallLog, defaultBufferSize),
		batchSize: defaultBatchSize,
		flushTime: defaultFlushTime,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *ingestor) Record(rec *engine.CallRecord) {
	log := toCallLog(rec)

	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.closed {
		return
	}

	select {
	case i.logChan <- log:
	default:
		i.logger.Warn("Call record buffer full, dropping record", zap.String("id", log.ID))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	i.wg.Add(1)
	go i.worker(ctx)
}

// Stop closes the buffer and waits for the final flush.
func (i *ingestor) Stop() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	close(i.logChan)
	i.mu.Unlock()

	i.wg.Wait()
}

func (i *ingestor) worker(ctx context.Context) {
	defer i.wg.Done()

	batch := make([]*model.CallLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		err := i.repo.WithTx(context.Background(), func(repo store.Repository) error {
			for _, log := range batch {
				if err := repo.Calls().Log(context.Background(), log); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			i.logger.Error("Failed to persist call records", zap.Int("count", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case log, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, log)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func toCallLog(rec *engine.CallRecord) *model.CallLog {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &model.CallLog{
		ID:           uuid.NewString(),
		Slot:         rec.Slot,
		Provider:     rec.Provider,
		URL:          rec.URL,
		ModelID:      rec.ModelID,
		Cached:       rec.Cached,
		HasImage:     rec.HasImage,
		ImageFormat:  rec.ImageFormat,
		StatusCode:   rec.StatusCode,
		Success:      rec.Success,
		ErrorKind:    rec.ErrorKind,
		ErrorMessage: rec.ErrorMessage,
		AnswerLength: rec.AnswerLength,
		Attempts:     rec.Attempts,
		LatencyMS:    rec.Latency.Milliseconds(),
		CreatedAt:    created,
	}
}
