package batch

import (
	"context"
	"errors"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
)

var ErrInvalidSample = errors.New("invalid sample")

// BatchKey уникально идентифицирует батч по сессии
type BatchKey struct {
	SessionID string `json:"session_id"`
}

// Batch представляет собранный батч точек сетки
type Batch struct {
	Key    BatchKey            `json:"key"`
	T0     time.Time           `json:"-"` // Время первой точки в батче
	T1     time.Time           `json:"-"` // Время последней точки в батче
	Points []models.GridSample `json:"points"`
}

// Span временной диапазон батча
func (b Batch) Span() time.Duration {
	return b.T1.Sub(b.T0)
}

// Sink интерфейс для обработки готовых батчей
type Sink interface {
	Consume(ctx context.Context, b Batch) error
}

// SinkFunc адаптер функции к Sink
type SinkFunc func(ctx context.Context, b Batch) error

func (f SinkFunc) Consume(ctx context.Context, b Batch) error {
	return f(ctx, b)
}

// currentBatch - внутренняя структура для отслеживания текущего состояния батча
type currentBatch struct {
	Batch
	lastAdded time.Time // Время последнего добавления по часам процесса
}

func newCurrentBatch(key BatchKey) *currentBatch {
	return &currentBatch{
		Batch: Batch{
			Key:    key,
			Points: make([]models.GridSample, 0),
		},
	}
}

// addPoint добавляет точку и обновляет временные границы
func (cb *currentBatch) addPoint(point models.GridSample, now time.Time) {
	if len(cb.Points) == 0 {
		cb.T0 = point.Timestamp
		cb.T1 = point.Timestamp
	} else {
		if point.Timestamp.Before(cb.T0) {
			cb.T0 = point.Timestamp
		}
		if point.Timestamp.After(cb.T1) {
			cb.T1 = point.Timestamp
		}
	}

	cb.Points = append(cb.Points, point)
	cb.lastAdded = now
}

func (cb *currentBatch) shouldFlushBySize(maxSamples int) bool {
	return len(cb.Points) >= maxSamples
}

// spanWith диапазон батча, если добавить точку t
func (cb *currentBatch) spanWith(t time.Time) time.Duration {
	if t.Before(cb.T0) {
		return cb.T1.Sub(t)
	}
	return t.Sub(cb.T0)
}

// clone создает копию батча для отправки в sink
func (cb *currentBatch) clone() Batch {
	pointsCopy := make([]models.GridSample, len(cb.Points))
	copy(pointsCopy, cb.Points)

	return Batch{
		Key:    cb.Key,
		T0:     cb.T0,
		T1:     cb.T1,
		Points: pointsCopy,
	}
}

// reset очищает батч для переиспользования
func (cb *currentBatch) reset() {
	cb.T0 = time.Time{}
	cb.T1 = time.Time{}
	cb.Points = cb.Points[:0]
	cb.lastAdded = time.Time{}
}
