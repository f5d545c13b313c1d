package senders

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Krimson/posture-emulator/internal/models"
)

// FileSender пишет сетку или события в файл; формат выбирается по расширению
type FileSender struct {
	filePath string
	format   Format
	mu       sync.Mutex
	closed   bool
	stats    statsRecorder
}

// NewFileSender создает файловый отправитель и каталог для файла
func NewFileSender(filePath string) (*FileSender, error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return &FileSender{filePath: filePath, format: format}, nil
}

// Path путь к файлу
func (fs *FileSender) Path() string {
	return fs.filePath
}

// Format формат файла
func (fs *FileSender) Format() Format {
	return fs.format
}

// SendGrid перезаписывает файл сеткой
func (fs *FileSender) SendGrid(samples []models.GridSample) error {
	return fs.write(len(samples), func(w *bufio.Writer) error {
		switch fs.format {
		case FormatCSV:
			return WriteGridCSV(w, samples)
		case FormatJSONL:
			jw := NewJSONLStream(w, 0, false)
			if err := jw.WriteGrid(samples); err != nil {
				return err
			}
			return jw.Flush()
		default:
			return WriteXLSX(w, samples, nil)
		}
	})
}

// SendEvents перезаписывает файл событиями
func (fs *FileSender) SendEvents(events []models.Event) error {
	return fs.write(len(events), func(w *bufio.Writer) error {
		switch fs.format {
		case FormatCSV:
			return WriteEventsCSV(w, events)
		case FormatJSONL:
			jw := NewJSONLStream(w, 0, false)
			if err := jw.WriteEvents(events); err != nil {
				return err
			}
			return jw.Flush()
		default:
			return WriteXLSX(w, nil, events)
		}
	})
}

func (fs *FileSender) write(rows int, fn func(w *bufio.Writer) error) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrWriterClosed
	}

	file, err := os.Create(fs.filePath)
	if err != nil {
		fs.stats.recordError()
		return fmt.Errorf("failed to open file: %w", err)
	}
	w := bufio.NewWriter(file)

	if err := fn(w); err != nil {
		file.Close()
		fs.stats.recordError()
		return fmt.Errorf("write %s: %w", fs.filePath, err)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		fs.stats.recordError()
		return fmt.Errorf("flush failed: %w", err)
	}
	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	if err := file.Close(); err != nil {
		fs.stats.recordError()
		return fmt.Errorf("file close failed: %w", err)
	}

	fs.stats.recordWrite(rows, int(size))
	return nil
}

// Close запрещает дальнейшую запись
func (fs *FileSender) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.closed = true
	return nil
}

// GetStats возвращает статистику записи
func (fs *FileSender) GetStats() WriteStats {
	return fs.stats.snapshot()
}
