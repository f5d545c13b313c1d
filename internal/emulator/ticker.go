package emulator

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
)

// Ticker управляет темпом воспроизведения сетки
type Ticker struct {
	interval time.Duration
	jitter   time.Duration
}

func NewTicker(interval, jitter time.Duration) *Ticker {
	return &Ticker{
		interval: interval,
		jitter:   jitter,
	}
}

// Tick возвращает канал, который отправляет метки времени с заданным интервалом.
// Первый тик приходит сразу, канал закрывается при отмене ctx.
func (t *Ticker) Tick(ctx context.Context) <-chan time.Time {
	tickChan := make(chan time.Time)

	go func() {
		defer close(tickChan)

		select {
		case tickChan <- time.Now():
		case <-ctx.Done():
			return
		}

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case tickTime := <-ticker.C:
				if t.jitter > 0 {
					tickTime = t.addJitter(tickTime)
				}
				select {
				case tickChan <- tickTime:
				case <-ctx.Done():
					return
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	return tickChan
}

func (t *Ticker) addJitter(baseTime time.Time) time.Time {
	jitterDuration := time.Duration(float64(t.jitter) * (rand.Float64()*2 - 1))
	return baseTime.Add(jitterDuration)
}

// Replay отдаёт точки сетки по одной на каждый тик.
// Возвращает ошибку emit или ctx.Err() при отмене.
func (t *Ticker) Replay(ctx context.Context, samples []models.GridSample, emit func(models.GridSample) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticks := t.Tick(ctx)
	for _, s := range samples {
		select {
		case _, ok := <-ticks:
			if !ok {
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := emit(s); err != nil {
			return err
		}
	}
	return nil
}
