package utils

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Ошибки валидации
var (
	ErrNonPositive     = errors.New("value must be positive")
	ErrOutOfRange      = errors.New("value out of range")
	ErrInvalidInterval = errors.New("end must be after start")
)

// ValidatePositive проверяет что значение строго больше нуля
func ValidatePositive(name string, value float64) error {
	if math.IsNaN(value) || value <= 0 {
		return fmt.Errorf("%s=%v: %w", name, value, ErrNonPositive)
	}
	return nil
}

// ValidateProbability проверяет что вероятность в [0, 1]
func ValidateProbability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%s=%v not in [0,1]: %w", name, p, ErrOutOfRange)
	}
	return nil
}

// ValidateInterval проверяет что конец строго позже начала
func ValidateInterval(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("start=%s end=%s: %w", FormatISO(start), FormatISO(end), ErrInvalidInterval)
	}
	return nil
}
