package senders

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Krimson/posture-emulator/internal/models"
)

const (
	GridSheet   = "grade"
	EventsSheet = "eventos"
)

// WriteXLSX пишет книгу Excel: лист сетки и/или лист событий.
// Пустой срез не создаёт соответствующий лист.
func WriteXLSX(w io.Writer, samples []models.GridSample, events []models.Event) error {
	if len(samples) == 0 && len(events) == 0 {
		return fmt.Errorf("nothing to export: %w", ErrInvalidData)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	active := ""
	if len(samples) > 0 {
		rows := make([][]any, 0, len(samples))
		for i, s := range samples {
			if !s.Posture.IsValid() {
				return fmt.Errorf("sample %d posture %q: %w", i, s.Posture, ErrInvalidData)
			}
			rows = append(rows, []any{s.ISOTimestamp(), s.Posture.String()})
		}
		if err := writeSheet(f, GridSheet, GridHeader, rows, headerStyle); err != nil {
			return err
		}
		active = GridSheet
	}

	if len(events) > 0 {
		rows := make([][]any, 0, len(events))
		for i, ev := range events {
			if err := ev.Validate(); err != nil {
				return fmt.Errorf("event %d: %v: %w", i, err, ErrInvalidData)
			}
			r := NewEventRecord(ev)
			rows = append(rows, []any{r.Timestamp, r.Posture, r.DurationMinutes, r.Origin, r.Failed, r.Start, r.End})
		}
		if err := writeSheet(f, EventsSheet, EventsHeader, rows, headerStyle); err != nil {
			return err
		}
		if active == "" {
			active = EventsSheet
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}
	// индексы сдвигаются после удаления Sheet1
	index, err := f.GetSheetIndex(active)
	if err != nil {
		return fmt.Errorf("failed to find sheet %s: %w", active, err)
	}
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, header []string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header %s: %w", name, err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d in %s: %w", i+2, name, err)
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(name, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}
	return nil
}
