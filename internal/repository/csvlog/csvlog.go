package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/smartcity/vehicle-counter/internal/domain"
)

// Header is the first row of a new log file
var Header = []string{"Timestamp", "Vehicle Type", "Vehicle ID", "Location"}

const timestampLayout = "2006-01-02 15:04:05"

// Writer appends crossing events to a CSV file, flushing after every row
type Writer struct {
	mu   sync.Mutex
	file *os.File
	w    *csv.Writer
}

// Open opens path for appending, creating parent directories and writing
// the header when the file is new or empty.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csvlog: failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvlog: failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvlog: failed to stat %s: %w", path, err)
	}

	lw := &Writer{file: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := lw.write(Header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return lw, nil
}

// Record appends one row for the event
func (lw *Writer) Record(ctx context.Context, event domain.CrossingEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	return lw.write([]string{
		event.Timestamp.Format(timestampLayout),
		string(event.VehicleType),
		strconv.FormatInt(event.VehicleID, 10),
		event.LocationID,
	})
}

func (lw *Writer) write(row []string) error {
	if lw.file == nil {
		return fmt.Errorf("csvlog: writer is closed")
	}
	if err := lw.w.Write(row); err != nil {
		return fmt.Errorf("csvlog: failed to write row: %w", err)
	}
	lw.w.Flush()
	if err := lw.w.Error(); err != nil {
		return fmt.Errorf("csvlog: failed to flush row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the file
func (lw *Writer) Close() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	if lw.file == nil {
		return nil
	}
	lw.w.Flush()
	flushErr := lw.w.Error()
	closeErr := lw.file.Close()
	lw.file = nil

	if flushErr != nil {
		return fmt.Errorf("csvlog: failed to flush on close: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("csvlog: failed to close: %w", closeErr)
	}
	return nil
}
