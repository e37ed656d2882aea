package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(WARN)
	defer SetLevel(INFO)

	Infof("converted %d files", 3)
	Warnf("skipped %s", "a.png")
	Errorf("failed %s", "b.png")

	out := buf.String()
	if strings.Contains(out, "converted 3 files") {
		t.Errorf("INFO line should be filtered at WARN level, got %q", out)
	}
	if !strings.Contains(out, "[WARN]  ") || !strings.Contains(out, "skipped a.png") {
		t.Errorf("expected WARN line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] ") || !strings.Contains(out, "failed b.png") {
		t.Errorf("expected ERROR line, got %q", out)
	}
	if strings.Contains(out, colorYellow) {
		t.Errorf("plain output should not contain color codes, got %q", out)
	}
}

func TestCallerIsReported(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(DEBUG)
	defer SetLevel(INFO)

	Debug("where am I")
	if !strings.Contains(buf.String(), "logger_test.go") {
		t.Errorf("expected caller file in output, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   DEBUG,
		" DEBUG ": DEBUG,
		"warning": WARN,
		"warn":    WARN,
		"error":   ERROR,
		"info":    INFO,
		"":        INFO,
		"verbose": INFO,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
