package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/surak-alf/addis-trans/internal/shared"
)

func TestLogManager_SetLevelNormalizesWhitespaceAndCase(t *testing.T) {
	manager := NewLogManager(shared.LogLevelInfo, 10)

	if err := manager.SetLevel("  WARNING  "); err != nil {
		t.Fatalf("expected SetLevel success, got %v", err)
	}
	if manager.GetLevel() != shared.LogLevelWarning {
		t.Fatalf("expected normalized level %q, got %q", shared.LogLevelWarning, manager.GetLevel())
	}

	if err := manager.SetLevel("warn"); err != nil {
		t.Fatalf("expected warn alias to be accepted, got %v", err)
	}
	if err := manager.SetLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLogManager_SetLevelNilReceiverReturnsError(t *testing.T) {
	var manager *LogManager
	err := manager.SetLevel("info")
	if err == nil {
		t.Fatal("expected error for nil log manager")
	}
	if err.Error() != "log manager is required" {
		t.Fatalf("expected nil receiver error, got %q", err.Error())
	}
}

func TestLogManager_FiltersBelowLevel(t *testing.T) {
	manager := NewLogManager(shared.LogLevelWarning, 10)

	manager.Debug("dropped", nil)
	manager.Info("dropped", nil)
	manager.Warning("kept", nil)
	manager.Error("kept", nil)

	if manager.Count() != 2 {
		t.Fatalf("expected 2 stored entries, got %d", manager.Count())
	}
	if got := manager.GetEntriesByLevel(shared.LogLevelError, 10); len(got) != 1 {
		t.Fatalf("expected 1 error entry, got %d", len(got))
	}
}

func TestLogManager_HandlersRunInlineAndRecoverPanics(t *testing.T) {
	manager := NewLogManager(shared.LogLevelDebug, 10)

	var received []LogEntry
	manager.AddHandler(func(entry LogEntry) {
		panic("intentional handler panic")
	})
	manager.AddHandler(func(entry LogEntry) {
		received = append(received, entry)
	})

	manager.Named("codec").Warning("dispatch failed", map[string]interface{}{"route": "0"})

	if len(received) != 1 {
		t.Fatalf("expected handler to run before Log returns, got %d calls", len(received))
	}
	if received[0].Logger != "codec" || received[0].Message != "dispatch failed" {
		t.Fatalf("unexpected entry %+v", received[0])
	}
}

func TestLogManager_KeepsMostRecentEntries(t *testing.T) {
	manager := NewLogManager(shared.LogLevelDebug, 3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		manager.Info(msg, nil)
	}

	entries := manager.GetEntries(0)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "c" || entries[2].Message != "e" {
		t.Fatalf("expected oldest entries evicted, got %+v", entries)
	}
	if latest := manager.GetEntries(1); latest[0].Message != "e" {
		t.Fatalf("expected latest entry e, got %q", latest[0].Message)
	}

	manager.Clear()
	if manager.Count() != 0 {
		t.Fatalf("expected no entries after Clear, got %d", manager.Count())
	}
}

func TestWriterHandler_FormatsSortedData(t *testing.T) {
	var buf bytes.Buffer
	manager := NewLogManager(shared.LogLevelInfo, 10)
	manager.AddHandler(NewWriterHandler(&buf))

	manager.Named("trainer").Info("checkpoint saved", map[string]interface{}{"path": "x.json", "episode": 10})

	line := buf.String()
	if !strings.Contains(line, "[INFO] trainer: checkpoint saved episode=10 path=x.json") {
		t.Fatalf("unexpected log line %q", line)
	}
}

func TestLogManager_NilReceiverIsSafe(t *testing.T) {
	var manager *LogManager
	if entries := manager.GetEntries(10); len(entries) != 0 {
		t.Fatalf("expected no entries for nil manager, got %d", len(entries))
	}
	if count := manager.Count(); count != 0 {
		t.Fatalf("expected count 0 for nil manager, got %d", count)
	}
	manager.Clear()
	manager.Info("noop", nil)
	manager.Named("x").Warning("noop", nil)
}
