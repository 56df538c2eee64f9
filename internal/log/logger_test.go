package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentStore, Output: &buf})

	l.Info("opened", FieldPath, "/tmp/x.db")
	out := buf.String()
	if !strings.Contains(out, "component=store") {
		t.Fatalf("missing component in %q", out)
	}
	if !strings.Contains(out, "path=/tmp/x.db") {
		t.Fatalf("missing attribute in %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentReport).With(FieldDimension, "project").Warn("slow")
	out = buf.String()
	if !strings.Contains(out, "component=report") || !strings.Contains(out, "dimension=project") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Component: ComponentApp, Output: &buf})
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatal("error record missing")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{" INFO ", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFields(t *testing.T) {
	f := NewFields().WithOperation(OpInvoice).WithError(errors.New("boom")).WithError(nil).With(FieldGroups, 3)
	if f[FieldOperation] != OpInvoice || f[FieldError] != "boom" || f[FieldGroups] != 3 {
		t.Fatalf("unexpected fields %v", f)
	}
	if got := len(f.ToSlice()); got != 6 {
		t.Fatalf("ToSlice length = %d, want 6", got)
	}
}
