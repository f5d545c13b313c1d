package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Config параметры батчера
type Config struct {
	MaxSamples    int
	MaxSpan       time.Duration
	FlushInterval time.Duration // Простаивающие батчи сбрасываются по таймеру
	QueueSize     int
}

// flushItem батч для sink или барьер для Flush
type flushItem struct {
	batch *Batch
	done  chan struct{}
}

type Batcher struct {
	cfg     Config
	sink    Sink
	logger  *zap.Logger
	mu      sync.Mutex
	batches map[BatchKey]*currentBatch

	flushChan chan flushItem
	stopChan  chan struct{}
	stopOnce  sync.Once
	workers   sync.WaitGroup

	stats struct {
		mu         sync.RWMutex
		received   int64
		dropped    int64
		flushed    int64
		outOfOrder int64
	}
}

func NewBatcher(cfg Config, sink Sink, logger *zap.Logger) *Batcher {
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 48
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Batcher{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		batches:   make(map[BatchKey]*currentBatch),
		flushChan: make(chan flushItem, cfg.QueueSize),
		stopChan:  make(chan struct{}),
	}

	b.workers.Add(1)
	go b.flushWorker()
	if cfg.FlushInterval > 0 {
		b.workers.Add(1)
		go b.timerFlusher()
	}

	return b
}

// Add добавляет точку сетки сессии в текущий батч
func (b *Batcher) Add(sessionID string, sample models.GridSample) error {
	if err := validateSample(sessionID, sample); err != nil {
		b.incrementDropped()
		b.logger.Warn("invalid sample dropped", zap.Error(err))
		return err
	}

	key := BatchKey{SessionID: sessionID}

	b.mu.Lock()
	defer b.mu.Unlock()

	batch, exists := b.batches[key]
	if !exists {
		batch = newCurrentBatch(key)
		b.batches[key] = batch
	}

	if len(batch.Points) > 0 {
		if sample.Timestamp.Before(batch.T1) {
			b.incrementOutOfOrder()
			b.logger.Warn("out of order sample",
				zap.String("session_id", sessionID),
				zap.String("timestamp", sample.ISOTimestamp()))
		}
		if b.cfg.MaxSpan > 0 && batch.spanWith(sample.Timestamp) > b.cfg.MaxSpan {
			b.flushBatch(batch)
		}
	}

	batch.addPoint(sample, time.Now())
	b.incrementReceived()

	if batch.shouldFlushBySize(b.cfg.MaxSamples) {
		b.flushBatch(batch)
	}

	return nil
}

// AddAll добавляет все точки сетки сессии
func (b *Batcher) AddAll(sessionID string, samples []models.GridSample) error {
	for _, s := range samples {
		if err := b.Add(sessionID, s); err != nil {
			return err
		}
	}
	return nil
}

func validateSample(sessionID string, sample models.GridSample) error {
	if sessionID == "" {
		return fmt.Errorf("empty session_id: %w", ErrInvalidSample)
	}
	if sample.Timestamp.IsZero() {
		return fmt.Errorf("zero timestamp: %w", ErrInvalidSample)
	}
	if !sample.Posture.IsValid() {
		return fmt.Errorf("posture %q: %w", sample.Posture, ErrInvalidSample)
	}
	return nil
}

// flushBatch вызывается под b.mu
func (b *Batcher) flushBatch(batch *currentBatch) {
	if len(batch.Points) == 0 {
		return
	}

	batchCopy := batch.clone()
	batch.reset()

	select {
	case b.flushChan <- flushItem{batch: &batchCopy}:
		b.incrementFlushed()
	default:
		b.logger.Warn("flush channel full, batch dropped",
			zap.String("session_id", batchCopy.Key.SessionID),
			zap.Int("points", len(batchCopy.Points)))
		b.incrementDropped()
	}
}

func (b *Batcher) flushWorker() {
	defer b.workers.Done()
	for {
		select {
		case item := <-b.flushChan:
			b.consume(item)

		case <-b.stopChan:
			// дочитываем то, что уже в очереди
			for {
				select {
				case item := <-b.flushChan:
					b.consume(item)
				default:
					return
				}
			}
		}
	}
}

func (b *Batcher) consume(item flushItem) {
	if item.done != nil {
		close(item.done)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.sink.Consume(ctx, *item.batch); err != nil {
		b.logger.Error("failed to consume batch",
			zap.String("session_id", item.batch.Key.SessionID),
			zap.Error(err))
	}
}

func (b *Batcher) timerFlusher() {
	defer b.workers.Done()
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flushIdleBatches()

		case <-b.stopChan:
			return
		}
	}
}

func (b *Batcher) flushIdleBatches() {
	now := time.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	// Сброшенные и пустые батчи удаляются: ID сессий не повторяются
	for key, batch := range b.batches {
		if len(batch.Points) > 0 && now.Sub(batch.lastAdded) <= b.cfg.FlushInterval {
			continue
		}
		b.flushBatch(batch)
		delete(b.batches, key)
	}
}

// Flush сбрасывает все батчи и ждёт, пока sink их обработает
func (b *Batcher) Flush(ctx context.Context) error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	b.flushAllBatches()

	done := make(chan struct{})
	select {
	case b.flushChan <- flushItem{done: done}:
	case <-b.stopChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Batcher) flushAllBatches() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, batch := range b.batches {
		b.flushBatch(batch)
		delete(b.batches, key)
	}
}

// pendingSessions число сессий с незакрытым батчем
func (b *Batcher) pendingSessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches)
}

// Stop сбрасывает оставшиеся батчи и останавливает воркеры
func (b *Batcher) Stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("stopping batcher")
		b.flushAllBatches()
		close(b.stopChan)
		b.workers.Wait()
		b.logStats()
	})
}

// Методы для работы со статистикой
func (b *Batcher) incrementReceived() {
	b.stats.mu.Lock()
	b.stats.received++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementDropped() {
	b.stats.mu.Lock()
	b.stats.dropped++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementFlushed() {
	b.stats.mu.Lock()
	b.stats.flushed++
	b.stats.mu.Unlock()
}

func (b *Batcher) incrementOutOfOrder() {
	b.stats.mu.Lock()
	b.stats.outOfOrder++
	b.stats.mu.Unlock()
}

func (b *Batcher) logStats() {
	received, dropped, flushed, outOfOrder := b.GetStats()
	b.logger.Info("batcher stats",
		zap.Int64("received", received),
		zap.Int64("dropped", dropped),
		zap.Int64("flushed", flushed),
		zap.Int64("out_of_order", outOfOrder))
}

func (b *Batcher) GetStats() (received, dropped, flushed, outOfOrder int64) {
	b.stats.mu.RLock()
	defer b.stats.mu.RUnlock()

	return b.stats.received, b.stats.dropped, b.stats.flushed, b.stats.outOfOrder
}

// LogSink пишет сводку батча в лог
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (ls *LogSink) Consume(ctx context.Context, b Batch) error {
	ls.logger.Info("batch",
		zap.String("session_id", b.Key.SessionID),
		zap.Int("points", len(b.Points)),
		zap.Duration("span", b.Span()),
		zap.String("t0", utils.FormatISO(b.T0)),
		zap.String("t1", utils.FormatISO(b.T1)))
	return nil
}

// MultiSink передаёт батч всем sink по очереди; ошибки собираются
type MultiSink []Sink

func (ms MultiSink) Consume(ctx context.Context, b Batch) error {
	var errs []error
	for _, s := range ms {
		if err := s.Consume(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
