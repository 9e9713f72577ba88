package sim

import (
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"rtsched/internal/sched"
)

// EventLog consumes the scheduler's event stream, logs it and optionally
// mirrors it to a CSV file.
type EventLog struct {
	mu     sync.Mutex
	log    *slog.Logger
	counts map[sched.EventKind]int

	// logging-related
	csvFile   *os.File
	csvWriter *csv.Writer
}

func NewEventLog(log *slog.Logger) *EventLog {
	if log == nil {
		log = slog.Default()
	}
	return &EventLog{log: log, counts: make(map[sched.EventKind]int)}
}

// EnableCSV opens the given file path for CSV logging of events.
// Must be called before Consume.
func (l *EventLog) EnableCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)

	// write header
	if err := w.Write([]string{"timestamp", "event", "task_id", "cpu", "other"}); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	l.csvFile = f
	l.csvWriter = w
	return nil
}

// Consume records events until ctx is done, then drains what is buffered.
func (l *EventLog) Consume(ctx context.Context, ch <-chan sched.Event) {
	for {
		select {
		case ev := <-ch:
			l.Record(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-ch:
					l.Record(ev)
				default:
					return
				}
			}
		}
	}
}

// Record handles a single event.
func (l *EventLog) Record(ev sched.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[ev.Kind]++
	l.log.Debug(ev.Kind.String(), "task", ev.TaskID, "cpu", ev.CPU, "other", ev.Other)

	if l.csvWriter != nil {
		rec := []string{
			ev.Time.Format(time.RFC3339Nano),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.TaskID), 10),
			strconv.Itoa(ev.CPU),
			strconv.FormatUint(uint64(ev.Other), 10),
		}
		if err := l.csvWriter.Write(rec); err != nil {
			l.log.Error("csv write", "err", err)
		}
		l.csvWriter.Flush()
	}
}

// Count returns how many events of kind were recorded.
func (l *EventLog) Count(kind sched.EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[kind]
}

// Close flushes and closes the CSV file, if any.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.csvFile == nil {
		return nil
	}
	l.csvWriter.Flush()
	err := l.csvFile.Close()
	l.csvFile, l.csvWriter = nil, nil
	return err
}
