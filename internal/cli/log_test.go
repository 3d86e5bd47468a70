package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("test") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("test") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestTimer(t *testing.T) {
	var buf bytes.Buffer
	newTimer(newLogger(&buf, log.InfoLevel)).done("milling complete")

	if !bytes.Contains(buf.Bytes(), []byte("milling complete (")) {
		t.Errorf("timer.done() output = %q, want message with duration", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}
}
