package generators

import (
	"fmt"
	"math/rand/v2"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

const (
	// DefaultFloor нижняя граница одной выборки по умолчанию
	DefaultFloor = 1.0
	// MinEventMinutes минимальная длительность обычного события
	MinEventMinutes = 5.0
)

// DurationParams параметры нормального распределения длительности, минуты
type DurationParams struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// FallbackDuration используется для поз без записи в таблице
var FallbackDuration = DurationParams{Mean: 90, StdDev: 30}

// DurationTable длительности по позам
type DurationTable map[models.Posture]DurationParams

// DefaultDurations таблица длительностей по умолчанию
func DefaultDurations() DurationTable {
	return DurationTable{
		models.PostureSupine:       {Mean: 90, StdDev: 30},
		models.PostureRightLateral: {Mean: 120, StdDev: 40},
		models.PostureLeftLateral:  {Mean: 120, StdDev: 40},
		models.PostureProne:        {Mean: 45, StdDev: 20},
	}
}

// Lookup параметры позы или FallbackDuration
func (t DurationTable) Lookup(p models.Posture) DurationParams {
	if params, ok := t[p]; ok {
		return params
	}
	return FallbackDuration
}

// Validate проверяет что в таблице нет отрицательных параметров
func (t DurationTable) Validate() error {
	for p, params := range t {
		if !p.IsValid() {
			return fmt.Errorf("posture %q: %w", p, ErrInvalidDurationTable)
		}
		if params.StdDev < 0 {
			return fmt.Errorf("posture %q stddev=%v: %w", p, params.StdDev, ErrInvalidDurationTable)
		}
	}
	return nil
}

// DurationSampler нормальные выборки на собственном потоке
type DurationSampler struct {
	rand *rand.Rand
}

func NewDurationSampler(rng *rand.Rand) *DurationSampler {
	return &DurationSampler{rand: rng}
}

// Sample одна выборка N(mean, stddev), ограниченная снизу floor
func (s *DurationSampler) Sample(mean, stddev, floor float64) float64 {
	value := s.rand.NormFloat64()*stddev + mean
	return utils.ClampMin(value, floor)
}
