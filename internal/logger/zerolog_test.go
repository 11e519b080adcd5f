package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"", zerolog.InfoLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestZerologAdapterFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.DebugLevel)

	log.Error("Pipeline", errors.New("disk full"), map[string]interface{}{"frame": 7})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "Pipeline" {
		t.Errorf("component = %v, want Pipeline", entry["component"])
	}
	if entry["error"] != "disk full" {
		t.Errorf("error = %v, want disk full", entry["error"])
	}
	if entry["frame"] != float64(7) {
		t.Errorf("frame = %v, want 7", entry["frame"])
	}
}

func TestZerologAdapterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.WarnLevel)

	log.Debug("Test", "hidden", nil)
	log.Info("Test", "hidden", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn level, got %q", buf.String())
	}

	log.Warning("Test", "shown", nil)
	if buf.Len() == 0 {
		t.Fatal("expected warning output")
	}
}

func TestZerologAdapterScopesComponents(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerolog(&buf, zerolog.InfoLevel)

	log.Info("Viewport", "first", map[string]interface{}{"frame": 1})
	log.Info("Viewport", "second", nil)
	log.Warning("Pipeline", "third", nil)

	if n := len(log.scoped); n != 2 {
		t.Errorf("scoped loggers = %d, want 2", n)
	}

	want := []string{"Viewport", "Viewport", "Pipeline"}
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %q", len(lines), len(want), buf.String())
	}
	for i, line := range lines {
		if c := bytes.Count(line, []byte(`"component"`)); c != 1 {
			t.Errorf("line %d has %d component keys: %s", i, c, line)
		}
		var entry map[string]interface{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("line %d is not JSON: %s", i, line)
		}
		if entry["component"] != want[i] {
			t.Errorf("line %d component = %v, want %s", i, entry["component"], want[i])
		}
	}
}
