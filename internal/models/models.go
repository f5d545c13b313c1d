package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Krimson/posture-emulator/pkg/utils"
)

// Ошибки валидации
var (
	ErrInvalidSessionWindow = errors.New("session end must be after session start")
	ErrInvalidStep          = errors.New("step minutes must be positive")
	ErrInvalidDuration      = errors.New("duration hours must be positive")
	ErrInvalidProfile       = errors.New("invalid patient profile")
	ErrNoEvents             = errors.New("no events to resample")
	ErrInvalidPosture       = errors.New("invalid posture")
	ErrInvalidOrigin        = errors.New("invalid event origin")
)

// Posture положение тела пациента. Значения совпадают с колонкой "postura" в CSV.
type Posture string

const (
	PostureSupine       Posture = "supino"
	PostureRightLateral Posture = "lateral_direito"
	PostureLeftLateral  Posture = "lateral_esquerdo"
	PostureProne        Posture = "prono"
)

// AllPostures фиксированный порядок поз. От него зависит воспроизводимость выбора.
var AllPostures = []Posture{
	PostureSupine,
	PostureRightLateral,
	PostureLeftLateral,
	PostureProne,
}

// IsValid проверяет что поза из известного набора
func (p Posture) IsValid() bool {
	for _, known := range AllPostures {
		if p == known {
			return true
		}
	}
	return false
}

func (p Posture) String() string {
	return string(p)
}

// ParsePosture разбирает значение колонки "postura"
func ParsePosture(s string) (Posture, error) {
	p := Posture(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%q: %w", s, ErrInvalidPosture)
	}
	return p, nil
}

// Origin источник события: обычная смена позы или приём пищи
type Origin string

const (
	OriginNormal Origin = "normal"
	OriginMeal   Origin = "refeicao"
)

func (o Origin) IsValid() bool {
	return o == OriginNormal || o == OriginMeal
}

// Event непрерывный интервал в одной позе
type Event struct {
	Start           time.Time `json:"inicio"`
	End             time.Time `json:"fim"`
	Posture         Posture   `json:"postura"`
	DurationMinutes float64   `json:"duracao_min"`
	Origin          Origin    `json:"origem"`
	Failed          bool      `json:"falha"`
}

// Validate проверяет внутреннюю согласованность события
func (e Event) Validate() error {
	if !e.Posture.IsValid() {
		return fmt.Errorf("event at %s: %w", utils.FormatISO(e.Start), ErrInvalidPosture)
	}
	if !e.Origin.IsValid() {
		return fmt.Errorf("event at %s: %w", utils.FormatISO(e.Start), ErrInvalidOrigin)
	}
	if !e.End.After(e.Start) {
		return fmt.Errorf("event at %s: %w", utils.FormatISO(e.Start), ErrInvalidSessionWindow)
	}
	return nil
}

// Duration длительность события как time.Duration
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Covers сообщает, попадает ли t в полуинтервал [Start, End)
func (e Event) Covers(t time.Time) bool {
	return !t.Before(e.Start) && t.Before(e.End)
}

// GridSample точка регулярной сетки
type GridSample struct {
	Timestamp time.Time `json:"-"`
	Posture   Posture   `json:"postura"`
}

// ISOTimestamp метка времени в формате выгрузки
func (s GridSample) ISOTimestamp() string {
	return utils.FormatISO(s.Timestamp)
}

type gridSampleJSON struct {
	Timestamp string  `json:"timestamp"`
	Posture   Posture `json:"postura"`
}

// MarshalJSON пишет timestamp в локальном ISO формате, как в CSV
func (s GridSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(gridSampleJSON{Timestamp: s.ISOTimestamp(), Posture: s.Posture})
}

// UnmarshalJSON читает timestamp в локальном ISO формате
func (s *GridSample) UnmarshalJSON(data []byte) error {
	var raw gridSampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ts, err := time.ParseInLocation(utils.ISOLayout, raw.Timestamp, time.Local)
	if err != nil {
		return fmt.Errorf("invalid grid timestamp %q: %w", raw.Timestamp, err)
	}
	if !raw.Posture.IsValid() {
		return fmt.Errorf("%q: %w", raw.Posture, ErrInvalidPosture)
	}
	s.Timestamp = ts
	s.Posture = raw.Posture
	return nil
}
