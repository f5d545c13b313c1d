package utils

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ISOLayout локальный ISO-8601 формат всех выгрузок (без смещения зоны)
const ISOLayout = "2006-01-02T15:04:05"

// MinutesToDuration переводит дробные минуты в time.Duration
func MinutesToDuration(minutes float64) time.Duration {
	return time.Duration(math.Round(minutes * float64(time.Minute)))
}

func DurationToMinutes(d time.Duration) float64 {
	return d.Minutes()
}

// ClampMin ограничивает значение снизу
func ClampMin(value, floor float64) float64 {
	if value < floor {
		return floor
	}
	return value
}

// Clamp ограничивает значение в диапазоне [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// FormatISO форматирует время в ISOLayout
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// FormatFloat печатает кратчайшую запись числа,
// у целых значений добавляется ".0" (формат колонки duracao_min)
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") && !math.IsInf(v, 0) && !math.IsNaN(v) {
		s += ".0"
	}
	return s
}

// FormatBool возвращает True/False
func FormatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// StartOfDay возвращает полночь календарного дня t в его зоне
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// minuteLayout формат начала сессии в CLI и API
const minuteLayout = "2006-01-02T15:04"

// ParseLocal разбирает локальное время в формате "YYYY-MM-DDTHH:MM" или ISOLayout
func ParseLocal(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	t, err := time.ParseInLocation(minuteLayout, value, time.Local)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation(ISOLayout, value, time.Local)
}
