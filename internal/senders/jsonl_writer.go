package senders

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/Krimson/posture-emulator/internal/models"
)

// JSONLWriter пишет сетку или события построчно в JSON
type JSONLWriter struct {
	writer    *bufio.Writer
	closer    io.Closer
	mu        sync.Mutex
	autoFlush bool
	stats     statsRecorder
}

// JSONLConfig конфигурация JSONL писателя
type JSONLConfig struct {
	FilePath   string      `json:"file_path"`
	AutoFlush  bool        `json:"auto_flush"`
	BufferSize int         `json:"buffer_size"`
	CreateDir  bool        `json:"create_dir"`
	FilePerm   os.FileMode `json:"file_perm"`
	Append     bool        `json:"append"`
}

// NewJSONLWriter создает файловый JSONL писатель
func NewJSONLWriter(config JSONLConfig) (*JSONLWriter, error) {
	if config.CreateDir {
		dir := filepath.Dir(config.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if config.Append {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	perm := config.FilePerm
	if perm == 0 {
		perm = 0644
	}
	file, err := os.OpenFile(config.FilePath, flags, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	w := NewJSONLStream(file, config.BufferSize, config.AutoFlush)
	w.closer = file
	return w, nil
}

// NewJSONLStream пишет в произвольный io.Writer; Close только сбрасывает буфер
func NewJSONLStream(w io.Writer, bufferSize int, autoFlush bool) *JSONLWriter {
	var writer *bufio.Writer
	if bufferSize > 0 {
		writer = bufio.NewWriterSize(w, bufferSize)
	} else {
		writer = bufio.NewWriter(w)
	}
	return &JSONLWriter{writer: writer, autoFlush: autoFlush}
}

// WriteGrid записывает точки сетки
func (j *JSONLWriter) WriteGrid(samples []models.GridSample) error {
	lines := make([]any, 0, len(samples))
	for i, s := range samples {
		if !s.Posture.IsValid() {
			j.stats.recordError()
			return fmt.Errorf("sample %d posture %q: %w", i, s.Posture, ErrInvalidData)
		}
		lines = append(lines, s)
	}
	return j.writeLines(lines)
}

// WriteEvents записывает события в виде EventRecord
func (j *JSONLWriter) WriteEvents(events []models.Event) error {
	lines := make([]any, 0, len(events))
	for i, ev := range events {
		if err := ev.Validate(); err != nil {
			j.stats.recordError()
			return fmt.Errorf("event %d: %v: %w", i, err, ErrInvalidData)
		}
		lines = append(lines, NewEventRecord(ev))
	}
	return j.writeLines(lines)
}

func (j *JSONLWriter) writeLines(lines []any) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer == nil {
		return ErrWriterClosed
	}
	if len(lines) == 0 {
		return nil
	}

	totalBytes := 0
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			j.stats.recordError()
			return fmt.Errorf("JSON marshaling failed: %w", err)
		}
		if _, err := j.writer.Write(data); err != nil {
			j.stats.recordError()
			return fmt.Errorf("write failed: %w", err)
		}
		if err := j.writer.WriteByte('\n'); err != nil {
			j.stats.recordError()
			return fmt.Errorf("newline write failed: %w", err)
		}
		totalBytes += len(data) + 1
	}

	if j.autoFlush {
		if err := j.writer.Flush(); err != nil {
			j.stats.recordError()
			return fmt.Errorf("flush failed: %w", err)
		}
	}

	j.stats.recordWrite(len(lines), totalBytes)
	return nil
}

// Flush принудительно сбрасывает буфер
func (j *JSONLWriter) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer == nil {
		return ErrWriterClosed
	}
	return j.writer.Flush()
}

// Close сбрасывает буфер и закрывает файл
func (j *JSONLWriter) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.writer != nil {
		if err := j.writer.Flush(); err != nil {
			return fmt.Errorf("final flush failed: %w", err)
		}
	}
	if j.closer != nil {
		if err := j.closer.Close(); err != nil {
			return fmt.Errorf("file close failed: %w", err)
		}
	}

	j.writer = nil
	j.closer = nil
	return nil
}

// GetStats возвращает текущую статистику записи
func (j *JSONLWriter) GetStats() WriteStats {
	return j.stats.snapshot()
}
