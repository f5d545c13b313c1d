package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/Krimson/posture-emulator/internal/emulator"
	"github.com/Krimson/posture-emulator/internal/generators"
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

// SessionStatus представляет статус сессии
type SessionStatus string

const (
	SessionStatusGenerated SessionStatus = "GENERATED"
	SessionStatusSaved     SessionStatus = "SAVED"
)

// Session метаданные сгенерированной сессии
type Session struct {
	ID            string                    `json:"id"`
	Status        SessionStatus             `json:"status"`
	PatientName   string                    `json:"patient_name"`
	Seed          int64                     `json:"seed"`
	DurationHours float64                   `json:"duration_hours"`
	StepMinutes   int                       `json:"step_minutes"`
	Start         time.Time                 `json:"start"`
	End           time.Time                 `json:"end"`
	EventCount    int                       `json:"event_count"`
	SampleCount   int                       `json:"sample_count"`
	Profile       profile.PatientProfile    `json:"profile"`
	Stats         generators.GeneratorStats `json:"stats"`
	CreatedAt     time.Time                 `json:"created_at"`
	SavedAt       *time.Time                `json:"saved_at,omitempty"`
}

// SessionData представляет все данные сессии для хранения
type SessionData struct {
	Session *Session            `json:"session"`
	Events  []models.Event      `json:"events"`
	Grid    []models.GridSample `json:"grid"`
}

// ProfileRequest параметры пациента в запросе; пустые поля берутся по умолчанию
type ProfileRequest struct {
	Name                         string   `json:"name,omitempty"`
	PostureTimeLimitMinutes      *float64 `json:"posture_time_limit_min,omitempty"`
	RepositionFailureProbability *float64 `json:"reposition_failure_probability,omitempty"`
	MealDurationMinutes          *float64 `json:"meal_duration_min,omitempty"`
	MealTimes                    []string `json:"meal_times,omitempty"` // "HH:MM" на день начала
	MealPolicy                   string   `json:"meal_policy,omitempty"`
}

// GenerateSessionRequest запрос на генерацию сессии
type GenerateSessionRequest struct {
	DurationHours *float64        `json:"duration_hours,omitempty"`
	Seed          *int64          `json:"seed,omitempty"`
	StepMinutes   *int            `json:"step_minutes,omitempty"`
	Start         string          `json:"start,omitempty"` // YYYY-MM-DDTHH:MM
	Profile       *ProfileRequest `json:"profile,omitempty"`
	Publish       bool            `json:"publish,omitempty"`
}

// SessionResponse ответ с информацией о сессии
type SessionResponse struct {
	Session *Session `json:"session"`
}

// Options переводит запрос в параметры генерации
func (r *GenerateSessionRequest) Options(now func() time.Time) (emulator.SessionOptions, error) {
	opts := emulator.DefaultSessionOptions()
	opts.Now = now
	if r == nil {
		r = &GenerateSessionRequest{}
	}

	if r.DurationHours != nil {
		opts.DurationHours = *r.DurationHours
	}
	if r.Seed != nil {
		opts.Seed = *r.Seed
	}
	if r.StepMinutes != nil {
		opts.StepMinutes = *r.StepMinutes
	}
	if r.Start != "" {
		start, err := utils.ParseLocal(r.Start)
		if err != nil {
			return opts, fmt.Errorf("start %q: %w", r.Start, ErrInvalidRequest)
		}
		opts.Start = start
	}

	start, _, err := opts.Window()
	if err != nil {
		return opts, err
	}
	opts.Start = start

	p, err := r.Profile.build(start)
	if err != nil {
		return opts, err
	}
	opts.Profile = p
	return opts, nil
}

func (pr *ProfileRequest) build(start time.Time) (*profile.PatientProfile, error) {
	p := profile.DefaultProfile()
	if pr == nil {
		return &p, nil
	}

	if pr.Name != "" {
		p.Name = pr.Name
	}
	if pr.PostureTimeLimitMinutes != nil {
		p.PostureTimeLimit = utils.MinutesToDuration(*pr.PostureTimeLimitMinutes)
	}
	if pr.RepositionFailureProbability != nil {
		p.RepositionFailureProbability = *pr.RepositionFailureProbability
	}
	if pr.MealDurationMinutes != nil {
		p.MealDuration = utils.MinutesToDuration(*pr.MealDurationMinutes)
	}
	if len(pr.MealTimes) > 0 {
		times, err := profile.ParseMealClock(start, pr.MealTimes)
		if err != nil {
			return nil, err
		}
		p.MealTimes = times
	}
	policy, err := profile.ParseMealPolicy(pr.MealPolicy)
	if err != nil {
		return nil, err
	}
	p.MealPolicy = policy

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// IsValidationError ошибки входных данных (HTTP 400, gRPC InvalidArgument)
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		models.ErrInvalidSessionWindow,
		models.ErrInvalidStep,
		models.ErrInvalidDuration,
		models.ErrInvalidProfile,
		models.ErrInvalidPosture,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func newSession(id string, opts emulator.SessionOptions, result *emulator.Result, createdAt time.Time) *Session {
	return &Session{
		ID:            id,
		Status:        SessionStatusGenerated,
		PatientName:   opts.Profile.Name,
		Seed:          opts.Seed,
		DurationHours: opts.DurationHours,
		StepMinutes:   opts.StepMinutes,
		Start:         result.Start,
		End:           result.End,
		EventCount:    len(result.Events),
		SampleCount:   len(result.Grid),
		Profile:       *opts.Profile,
		Stats:         result.Stats,
		CreatedAt:     createdAt,
	}
}
