package generators

import (
	"fmt"
	"sort"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

// GridSize количество точек сетки для окна и шага
func GridSize(start, end time.Time, stepMinutes int) int {
	step := time.Duration(stepMinutes) * time.Minute
	return int(end.Sub(start)/step) + 1
}

// ResampleToGrid переводит события в регулярную сетку start + k*step, k >= 0,
// включая точки, совпадающие с end. Точке соответствует поза события,
// в полуинтервал которого она попадает; после последнего события берётся
// его поза.
func ResampleToGrid(events []models.Event, stepMinutes int, start, end time.Time) ([]models.GridSample, error) {
	if stepMinutes <= 0 {
		return nil, fmt.Errorf("step=%d: %w", stepMinutes, models.ErrInvalidStep)
	}
	if len(events) == 0 {
		return nil, models.ErrNoEvents
	}
	if err := utils.ValidateInterval(start, end); err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidSessionWindow)
	}

	sorted := make([]models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	step := time.Duration(stepMinutes) * time.Minute
	size := GridSize(start, end, stepMinutes)
	samples := make([]models.GridSample, 0, size)

	idx := 0
	for k := 0; k < size; k++ {
		t := start.Add(time.Duration(k) * step)
		for idx < len(sorted)-1 && !t.Before(sorted[idx].End) {
			idx++
		}
		samples = append(samples, models.GridSample{Timestamp: t, Posture: sorted[idx].Posture})
	}
	return samples, nil
}
