// Package profile описывает параметры моделируемого пациента.
package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// MealPolicy определяет, как генератор обрабатывает приёмы пищи
type MealPolicy string

const (
	// MealPolicyPreempt обрывает текущую позу ровно во время приёма пищи,
	// так что каждый приём пищи внутри сессии попадает в последовательность.
	MealPolicyPreempt MealPolicy = "preempt"
	// MealPolicyWindow применяет приём пищи только если курсор попал в его
	// одноминутное окно; перепрыгнутые приёмы пищи пропускаются.
	MealPolicyWindow MealPolicy = "window"
)

const (
	DefaultName                         = "Paciente"
	DefaultPostureTimeLimit             = 120 * time.Minute
	DefaultRepositionFailureProbability = 0.7
	DefaultMealDuration                 = 30 * time.Minute

	defaultMealAnchorHour = 6
)

// defaultMealOffsets смещения от 06:00 дня начала сессии: 12:00, 18:00 и 00:00 следующего дня
var defaultMealOffsets = []time.Duration{6 * time.Hour, 12 * time.Hour, 18 * time.Hour}

// PatientProfile параметры пациента. После создания не изменяется.
type PatientProfile struct {
	Name                         string        `json:"name"`
	PostureTimeLimit             time.Duration `json:"posture_time_limit"`
	RepositionFailureProbability float64       `json:"reposition_failure_probability"`
	MealTimes                    []time.Time   `json:"meal_times,omitempty"`
	MealDuration                 time.Duration `json:"meal_duration"`
	MealPolicy                   MealPolicy    `json:"meal_policy,omitempty"`
}

// DefaultProfile профиль по умолчанию
func DefaultProfile() PatientProfile {
	return PatientProfile{
		Name:                         DefaultName,
		PostureTimeLimit:             DefaultPostureTimeLimit,
		RepositionFailureProbability: DefaultRepositionFailureProbability,
		MealDuration:                 DefaultMealDuration,
		MealPolicy:                   MealPolicyPreempt,
	}
}

// DefaultMealTimes три приёма пищи: 06:00 дня начала сессии плюс 6, 12 и 18 часов
func (p PatientProfile) DefaultMealTimes(start time.Time) []time.Time {
	base := utils.StartOfDay(start).Add(defaultMealAnchorHour * time.Hour)
	times := make([]time.Time, 0, len(defaultMealOffsets))
	for _, offset := range defaultMealOffsets {
		times = append(times, base.Add(offset))
	}
	return times
}

// MealSchedule возвращает отсортированную копию времён приёма пищи
// или расписание по умолчанию, если оно не задано.
func (p PatientProfile) MealSchedule(start time.Time) []time.Time {
	if len(p.MealTimes) == 0 {
		return p.DefaultMealTimes(start)
	}
	times := make([]time.Time, len(p.MealTimes))
	copy(times, p.MealTimes)
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times
}

// Policy возвращает политику приёма пищи с учётом значения по умолчанию
func (p PatientProfile) Policy() MealPolicy {
	if p.MealPolicy == "" {
		return MealPolicyPreempt
	}
	return p.MealPolicy
}

// LimitMinutes лимит времени в одной позе в минутах
func (p PatientProfile) LimitMinutes() float64 {
	return utils.DurationToMinutes(p.PostureTimeLimit)
}

// Validate проверяет корректность профиля
func (p PatientProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("empty name: %w", models.ErrInvalidProfile)
	}
	if err := utils.ValidatePositive("posture_time_limit", p.PostureTimeLimit.Minutes()); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidProfile)
	}
	if err := utils.ValidateProbability("reposition_failure_probability", p.RepositionFailureProbability); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidProfile)
	}
	if err := utils.ValidatePositive("meal_duration", p.MealDuration.Minutes()); err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrInvalidProfile)
	}
	switch p.Policy() {
	case MealPolicyPreempt, MealPolicyWindow:
	default:
		return fmt.Errorf("unknown meal policy %q: %w", p.MealPolicy, models.ErrInvalidProfile)
	}
	return nil
}

// ParseMealPolicy разбирает значение флага/поля запроса
func ParseMealPolicy(s string) (MealPolicy, error) {
	switch MealPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", MealPolicyPreempt:
		return MealPolicyPreempt, nil
	case MealPolicyWindow:
		return MealPolicyWindow, nil
	}
	return "", fmt.Errorf("unknown meal policy %q: %w", s, models.ErrInvalidProfile)
}

// ParseMealClock строит времена приёма пищи из списка "HH:MM" на дату start
func ParseMealClock(start time.Time, clocks []string) ([]time.Time, error) {
	day := utils.StartOfDay(start)
	times := make([]time.Time, 0, len(clocks))
	for _, c := range clocks {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		parsed, err := time.Parse("15:04", c)
		if err != nil {
			return nil, fmt.Errorf("invalid meal time %q: %w", c, models.ErrInvalidProfile)
		}
		times = append(times, day.Add(time.Duration(parsed.Hour())*time.Hour+time.Duration(parsed.Minute())*time.Minute))
	}
	return times, nil
}
