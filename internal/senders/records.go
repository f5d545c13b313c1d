package senders

import (
	"github.com/Krimson/posture-emulator/internal/models"
	"github.com/Krimson/posture-emulator/pkg/utils"
)

var (
	// GridHeader колонки выгрузки сетки
	GridHeader = []string{"timestamp", "postura"}
	// EventsHeader колонки выгрузки событий
	EventsHeader = []string{"timestamp", "postura", "duracao_min", "origem", "falha", "inicio", "fim"}
)

// EventRecord плоская запись события, общая для CSV, JSONL и XLSX
type EventRecord struct {
	Timestamp       string  `json:"timestamp"`
	Posture         string  `json:"postura"`
	DurationMinutes float64 `json:"duracao_min"`
	Origin          string  `json:"origem"`
	Failed          bool    `json:"falha"`
	Start           string  `json:"inicio"`
	End             string  `json:"fim"`
}

// NewEventRecord переводит событие в запись выгрузки
func NewEventRecord(ev models.Event) EventRecord {
	start := utils.FormatISO(ev.Start)
	return EventRecord{
		Timestamp:       start,
		Posture:         ev.Posture.String(),
		DurationMinutes: ev.DurationMinutes,
		Origin:          string(ev.Origin),
		Failed:          ev.Failed,
		Start:           start,
		End:             utils.FormatISO(ev.End),
	}
}

// NewEventRecords переводит последовательность событий
func NewEventRecords(events []models.Event) []EventRecord {
	records := make([]EventRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, NewEventRecord(ev))
	}
	return records
}

// Row строка CSV в порядке EventsHeader
func (r EventRecord) Row() []string {
	return []string{
		r.Timestamp,
		r.Posture,
		utils.FormatFloat(r.DurationMinutes),
		r.Origin,
		utils.FormatBool(r.Failed),
		r.Start,
		r.End,
	}
}

func gridRow(s models.GridSample) []string {
	return []string{s.ISOTimestamp(), s.Posture.String()}
}
