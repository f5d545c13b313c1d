package senders

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/Krimson/posture-emulator/internal/models"
)

// WriteGridCSV пишет сетку с заголовком timestamp,postura
func WriteGridCSV(w io.Writer, samples []models.GridSample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(GridHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, s := range samples {
		if !s.Posture.IsValid() {
			return fmt.Errorf("row %d posture %q: %w", i, s.Posture, ErrInvalidData)
		}
		if err := cw.Write(gridRow(s)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEventsCSV пишет события с заголовком EventsHeader
func WriteEventsCSV(w io.Writer, events []models.Event) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(EventsHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("row %d: %v: %w", i, err, ErrInvalidData)
		}
		if err := cw.Write(NewEventRecord(ev).Row()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
