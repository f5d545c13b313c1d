package generators

import (
	"errors"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/internal/profile"
)

// Ошибки генераторов
var (
	ErrInvalidTransitionTable = errors.New("invalid transition table")
	ErrInvalidDurationTable   = errors.New("invalid duration table")
)

// EventSource генератор последовательности событий смены позы
type EventSource interface {
	// Generate строит события, покрывающие [start, end) без пропусков
	Generate(start, end time.Time, p *profile.PatientProfile) ([]models.Event, error)

	// GetStats возвращает статистику работы генератора
	GetStats() GeneratorStats

	// Reset сбрасывает статистику
	Reset()
}

// DurationSource источник случайных длительностей в минутах
type DurationSource interface {
	Sample(mean, stddev, floor float64) float64
}

// PostureSelector выбирает следующую позу
type PostureSelector interface {
	Next(current models.Posture) models.Posture
}

// GeneratorStats содержит статистику генератора
type GeneratorStats struct {
	EventsGenerated  int                        `json:"events_generated"`
	MealsApplied     int                        `json:"meals_applied"`
	MealsSkipped     int                        `json:"meals_skipped"`
	FailedEvents     int                        `json:"failed_events"`
	MinutesByPosture map[models.Posture]float64 `json:"minutes_by_posture"`
}

func newGeneratorStats() GeneratorStats {
	return GeneratorStats{MinutesByPosture: make(map[models.Posture]float64, len(models.AllPostures))}
}

// clone копия статистики, безопасная для передачи наружу
func (s GeneratorStats) clone() GeneratorStats {
	out := s
	out.MinutesByPosture = make(map[models.Posture]float64, len(s.MinutesByPosture))
	for k, v := range s.MinutesByPosture {
		out.MinutesByPosture[k] = v
	}
	return out
}

func (s *GeneratorStats) record(ev models.Event) {
	s.EventsGenerated++
	if ev.Failed {
		s.FailedEvents++
	}
	s.MinutesByPosture[ev.Posture] += ev.Duration().Minutes()
}
