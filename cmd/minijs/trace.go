package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/thomasrohde/minijs/pkg/evaluator"
)

// traceWriter appends trace events to a file as NDJSON.
type traceWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
	err error
}

func newTraceWriter(path string) (*traceWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	buf := bufio.NewWriter(f)
	return &traceWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write records one event. The first encoding error is kept for Close.
func (w *traceWriter) Write(event evaluator.TraceEvent) {
	if w.err != nil {
		return
	}
	w.err = w.enc.Encode(event)
}

func (w *traceWriter) Close() error {
	return errors.Join(w.err, w.buf.Flush(), w.f.Close())
}

type TraceSummary struct {
	RunID          string  `json:"runId"`
	TotalEvents    int     `json:"totalEvents"`
	Statements     int     `json:"statements"`
	Prints         int     `json:"prints"`
	Loops          int     `json:"loops"`
	Iterations     int     `json:"iterations"`
	ScopesEntered  int     `json:"scopesEntered"`
	MaxDepth       int     `json:"maxDepth"`
	BudgetExceeded int     `json:"budgetExceeded"`
	OK             *bool   `json:"ok,omitempty"`
	StartTime      string  `json:"startTime,omitempty"`
	EndTime        string  `json:"endTime,omitempty"`
	DurationMs     float64 `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.OK = &ok
			}
		case evaluator.TraceStmtStart:
			summary.Statements++
		case evaluator.TracePrint:
			summary.Prints++
		case evaluator.TraceLoopStart:
			summary.Loops++
		case evaluator.TraceLoopEnd:
			// JSON numbers decode as float64
			if n, ok := event.Data["iterations"].(float64); ok {
				summary.Iterations += int(n)
			}
		case evaluator.TraceScopeEnter:
			summary.ScopesEntered++
			if d, ok := event.Data["depth"].(float64); ok && int(d) > summary.MaxDepth {
				summary.MaxDepth = int(d)
			}
		case evaluator.TraceBudgetExceeded:
			summary.BudgetExceeded++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Statements: %d\n", s.Statements)
	fmt.Fprintf(w, "Prints: %d\n", s.Prints)
	fmt.Fprintf(w, "Loops: %d (%d iterations)\n", s.Loops, s.Iterations)
	fmt.Fprintf(w, "Scopes: %d entered, max depth %d\n", s.ScopesEntered, s.MaxDepth)
	if s.BudgetExceeded > 0 {
		fmt.Fprintf(w, "Budget exceeded: %d\n", s.BudgetExceeded)
	}
	if s.OK != nil {
		fmt.Fprintf(w, "OK: %t\n", *s.OK)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
