package logging

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warn", LevelWarn, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"DEBUG", LevelDebug, true},
		{"  Info ", LevelInfo, true},
		{"", LevelInfo, false},
		{"verbose", LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, ok := ParseLevel(tt.input)
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
			if ok != tt.ok {
				t.Errorf("ParseLevel(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	if LevelDebug >= LevelInfo {
		t.Error("LevelDebug should be less than LevelInfo")
	}
	if LevelInfo >= LevelWarn {
		t.Error("LevelInfo should be less than LevelWarn")
	}
	if LevelWarn >= LevelError {
		t.Error("LevelWarn should be less than LevelError")
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(42), "unknown(42)"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("LogLevel(%d).String() = %q, want %q", tt.level, got, tt.expected)
		}
	}
}

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	previous := GetLevel()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		SetLevel(previous)
	})

	SetLevel(LevelWarn)

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARN should be dropped, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn 3") {
		t.Errorf("expected WARN line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("expected ERROR line, got %q", out)
	}
	if IsDebugEnabled() {
		t.Error("IsDebugEnabled should be false at WARN")
	}
}
