package commands

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/submux/submux-go/pkg/entry"
	"github.com/submux/submux-go/pkg/log"
	"github.com/submux/submux-go/pkg/pubsub"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.slog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ch := pubsub.Channel("news")
	state := func(offset time.Duration, to string) log.Event {
		e := log.NewStateEvent("conn-aaaaaaaa", log.StateEntitySubscribe, pubsub.Subscribe, ch, "", to, "")
		e.Timestamp = ts.Add(offset)
		return e
	}
	return []log.Event{
		state(0, entry.StateRequested),
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "conn-aaaaaaaa",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryCommand,
			Channel:      "news",
			Kind:         pubsub.Subscribe,
			Wire:         &log.WireEvent{FrameType: "COMMAND"},
		},
		state(2*time.Millisecond, entry.StateTimedOut),
		{
			Timestamp:    ts.Add(3 * time.Millisecond),
			ConnectionID: "conn-bbbbbbbb",
			Direction:    log.DirectionLocal,
			Layer:        log.LayerWire,
			Category:     log.CategoryStatus,
			Channel:      "news",
			Kind:         pubsub.Unsubscribe,
			Wire:         &log.WireEvent{FrameType: "ACK", Synthesized: true},
		},
		{
			Timestamp:    ts.Add(4 * time.Millisecond),
			ConnectionID: "conn-bbbbbbbb",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryFrame,
			Frame:        &log.FrameEvent{Size: 3, Data: []byte{1, 2, 3}},
		},
	}
}

func TestRunViewFormatsEvents(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"[conn:conn-aaa] LOCAL ENTRY State SUBSCRIBE news",
		"-> TIMED_OUT",
		"OUT   WIRE COMMAND SUBSCRIBE news",
		"Synthesized: true",
		"Data: 010203",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	layer := log.LayerTransport

	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Layer: &layer}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[conn:"); got != 1 {
		t.Errorf("got %d events, want 1", got)
	}
}

func TestRunStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := Collect(path)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.TotalEvents != 5 {
		t.Errorf("TotalEvents = %d, want 5", stats.TotalEvents)
	}
	a := stats.Connections["conn-aaaaaaaa"]
	if a == nil || a.Timeouts != 1 || len(a.Channels) != 1 {
		t.Errorf("conn-aaaaaaaa stats = %+v, want 1 timeout on 1 channel", a)
	}
	if b := stats.Connections["conn-bbbbbbbb"]; b == nil || b.Synthesized != 1 {
		t.Errorf("conn-bbbbbbbb stats = %+v, want 1 synthesized ack", b)
	}

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	for _, want := range []string{"Total Events: 5", "ENTRY:", "LOCAL:", "Connections: 2", "Timeouts: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("stats output missing %q", want)
		}
	}
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "filtered.slog")

	n, err := RunFilter(path, out, FilterOptions{ConnID: "conn-aaaaaaaa", Category: "state"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("RunFilter wrote %d events, want 2", n)
	}

	stats, err := Collect(out)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if stats.TotalEvents != 2 || stats.EventsByCategory[log.CategoryState] != 2 {
		t.Errorf("filtered file has %d events, want 2 state events", stats.TotalEvents)
	}
}

func TestFilterOptionsRejectInvalid(t *testing.T) {
	tests := []FilterOptions{
		{Layer: "service"},
		{Direction: "sideways"},
		{Category: "control"},
		{Kind: "publish"},
		{TimeStart: "yesterday"},
	}
	for _, opts := range tests {
		if _, err := opts.Build(); err == nil {
			t.Errorf("Build(%+v) succeeded, want error", opts)
		}
	}
}

func TestFilterOptionsKind(t *testing.T) {
	f, err := FilterOptions{Kind: "psubscribe"}.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if f.Kind == nil || *f.Kind != pubsub.PSubscribe {
		t.Errorf("Kind = %v, want PSUBSCRIBE", f.Kind)
	}
}

func TestRunExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "csv", &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want header + 5", len(rows))
	}
	if rows[3][8] != entry.StateTimedOut {
		t.Errorf("state column = %q, want %q", rows[3][8], entry.StateTimedOut)
	}
}

func TestRunExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunExport(path, "jsonl", &buf); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 5 {
		t.Errorf("got %d lines, want 5", got)
	}
	if err := RunExport(path, "xml", &buf); err == nil {
		t.Error("unknown format accepted")
	}
}
