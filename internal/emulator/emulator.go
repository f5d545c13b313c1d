package emulator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/senders"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Emulator генерирует сессию и передаёт результат отправителям
type Emulator struct {
	opts        SessionOptions
	gridSender  senders.GridSender
	eventSender senders.EventSender
	logger      *zap.Logger
}

// NewEmulator eventSender может быть nil, тогда события не выгружаются
func NewEmulator(opts SessionOptions, gridSender senders.GridSender, eventSender senders.EventSender, logger *zap.Logger) *Emulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.Logger = logger
	return &Emulator{
		opts:        opts,
		gridSender:  gridSender,
		eventSender: eventSender,
		logger:      logger,
	}
}

func (e *Emulator) Run(ctx context.Context) (*Result, error) {
	start, end, err := e.opts.Window()
	if err != nil {
		return nil, err
	}
	e.logger.Info("starting emulator",
		zap.String("start", utils.FormatISO(start)),
		zap.String("end", utils.FormatISO(end)),
		zap.Int64("seed", e.opts.Seed),
		zap.Int("step_minutes", e.opts.StepMinutes))

	// фиксируем окно, чтобы повторный вызов Now не сдвинул сессию
	opts := e.opts
	opts.Start = start

	result, err := GenerateSession(opts, e.gridSender != nil)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if e.gridSender != nil {
		if err := e.gridSender.SendGrid(result.Grid); err != nil {
			return nil, fmt.Errorf("send grid: %w", err)
		}
		e.logger.Info("grid written", zap.Int("rows", len(result.Grid)))
	}

	if e.eventSender != nil {
		if err := e.eventSender.SendEvents(result.Events); err != nil {
			return nil, fmt.Errorf("send events: %w", err)
		}
		e.logger.Info("events written", zap.Int("rows", len(result.Events)))
	}

	e.logger.Info("emulator finished",
		zap.Int("events", result.Stats.EventsGenerated),
		zap.Int("meals_applied", result.Stats.MealsApplied),
		zap.Int("meals_skipped", result.Stats.MealsSkipped),
		zap.Int("failed_events", result.Stats.FailedEvents))
	return result, nil
}
