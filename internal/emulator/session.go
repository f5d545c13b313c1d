package emulator

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Krimson/posture-emulator/internal/generators"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

const (
	DefaultDurationHours = 24.0
	DefaultSeed          = int64(42)
	DefaultStepMinutes   = 5
)

// SessionOptions параметры одной сессии
type SessionOptions struct {
	DurationHours float64
	Seed          int64
	StepMinutes   int
	// Start нулевое значение: текущее время, усечённое до минуты, минус DurationHours
	Start time.Time
	// Profile nil означает профиль по умолчанию
	Profile *profile.PatientProfile
	Now     func() time.Time
	Logger  *zap.Logger
}

// DefaultSessionOptions 24 часа, seed 42, шаг 5 минут
func DefaultSessionOptions() SessionOptions {
	return SessionOptions{
		DurationHours: DefaultDurationHours,
		Seed:          DefaultSeed,
		StepMinutes:   DefaultStepMinutes,
	}
}

// Result результат генерации сессии
type Result struct {
	Start  time.Time                 `json:"start"`
	End    time.Time                 `json:"end"`
	Events []models.Event            `json:"events"`
	Grid   []models.GridSample       `json:"grid,omitempty"`
	Stats  generators.GeneratorStats `json:"stats"`
}

// Window вычисляет [start, end) сессии
func (o SessionOptions) Window() (time.Time, time.Time, error) {
	if err := utils.ValidatePositive("duration_hours", o.DurationHours); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%v: %w", err, models.ErrInvalidDuration)
	}
	span := time.Duration(o.DurationHours * float64(time.Hour))

	start := o.Start
	if start.IsZero() {
		now := time.Now
		if o.Now != nil {
			now = o.Now
		}
		start = now().Truncate(time.Minute).Add(-span)
	}
	return start, start.Add(span), nil
}

func (o SessionOptions) profile() *profile.PatientProfile {
	if o.Profile != nil {
		return o.Profile
	}
	p := profile.DefaultProfile()
	return &p
}

func (o SessionOptions) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

// GenerateSession строит события и, если withGrid, сетку
func GenerateSession(opts SessionOptions, withGrid bool) (*Result, error) {
	if withGrid && opts.StepMinutes <= 0 {
		return nil, fmt.Errorf("step=%d: %w", opts.StepMinutes, models.ErrInvalidStep)
	}
	start, end, err := opts.Window()
	if err != nil {
		return nil, err
	}

	gen := generators.NewEventGenerator(opts.Seed, generators.WithLogger(opts.logger()))
	events, err := gen.Generate(start, end, opts.profile())
	if err != nil {
		return nil, err
	}

	result := &Result{
		Start:  start,
		End:    end,
		Events: events,
		Stats:  gen.GetStats(),
	}
	if withGrid {
		grid, err := generators.ResampleToGrid(events, opts.StepMinutes, start, end)
		if err != nil {
			return nil, err
		}
		result.Grid = grid
	}
	return result, nil
}

// GenerateGridSession сетка поз для сессии
func GenerateGridSession(opts SessionOptions) ([]models.GridSample, error) {
	result, err := GenerateSession(opts, true)
	if err != nil {
		return nil, err
	}
	return result.Grid, nil
}

// GenerateRawEvents события сессии без перевода в сетку
func GenerateRawEvents(opts SessionOptions) ([]models.Event, error) {
	result, err := GenerateSession(opts, false)
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}
