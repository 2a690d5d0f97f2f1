package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"npc-director/server/logging"
)

// CSVRecord is the flattened row written for each event.
type CSVRecord struct {
	Time     string `csv:"time"`
	Tick     uint64 `csv:"tick"`
	Type     string `csv:"type"`
	Severity string `csv:"severity"`
	Category string `csv:"category"`
	Actor    string `csv:"actor"`
	Targets  string `csv:"targets"`
	Payload  string `csv:"payload"`
}

// CSV appends one row per event. The header is written with the first row.
type CSV struct {
	mu            sync.Mutex
	out           io.Writer
	headerWritten bool
}

// NewCSV constructs a CSV sink. When out is an io.Closer it is closed with the
// sink.
func NewCSV(out io.Writer) *CSV {
	if out == nil {
		out = io.Discard
	}
	return &CSV{out: out}
}

func toCSVRecord(event logging.Event) CSVRecord {
	record := CSVRecord{
		Time:     event.Time.Format(time.RFC3339Nano),
		Tick:     event.Tick,
		Type:     string(event.Type),
		Severity: event.Severity.String(),
		Category: event.Category,
		Actor:    formatEntity(event.Actor),
	}
	if len(event.Targets) > 0 {
		parts := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			parts = append(parts, formatEntity(target))
		}
		record.Targets = strings.Join(parts, ";")
	}
	if event.Payload != nil {
		if data, err := json.Marshal(event.Payload); err == nil {
			record.Payload = string(data)
		} else {
			record.Payload = fmt.Sprintf("%v", event.Payload)
		}
	}
	return record
}

// Write satisfies logging.Sink.
func (s *CSV) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []CSVRecord{toCSVRecord(event)}
	if !s.headerWritten {
		if err := gocsv.Marshal(records, s.out); err != nil {
			return fmt.Errorf("writing csv event: %w", err)
		}
		s.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, s.out); err != nil {
		return fmt.Errorf("writing csv event: %w", err)
	}
	return nil
}

func (s *CSV) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if closer, ok := s.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
