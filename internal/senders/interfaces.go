package senders

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Krimson/posture-emulator/internal/models"
)

// Ошибки отправителей
var (
	ErrWriterClosed      = errors.New("writer closed")
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrInvalidData       = errors.New("invalid data format")
)

// GridSender принимает регулярную сетку поз
type GridSender interface {
	SendGrid(samples []models.GridSample) error
	Close() error
}

// EventSender принимает последовательность событий
type EventSender interface {
	SendEvents(events []models.Event) error
	Close() error
}

// Format формат выгрузки
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatXLSX  Format = "xlsx"
)

// FormatFromPath определяет формат по расширению файла
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("%q: %w", path, ErrUnsupportedFormat)
}

// WriteStats содержит статистику записи
type WriteStats struct {
	TotalRows     int64     `json:"total_rows"`
	TotalBytes    int64     `json:"total_bytes"`
	LastWriteTime time.Time `json:"last_write_time"`
	ErrorsCount   int64     `json:"errors_count"`
}

// statsRecorder потокобезопасный счётчик WriteStats
type statsRecorder struct {
	mu    sync.RWMutex
	stats WriteStats
}

func (r *statsRecorder) recordWrite(rows, bytes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.TotalRows += int64(rows)
	r.stats.TotalBytes += int64(bytes)
	r.stats.LastWriteTime = time.Now()
}

func (r *statsRecorder) recordError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.ErrorsCount++
}

func (r *statsRecorder) snapshot() WriteStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}
