package zap

import (
	"errors"
	"testing"

	"github.com/unkn0wn-root/asidecache"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("d", nil)
	l.Info("i", asidecache.Fields{"key": "k"})
	l.Warn("w", asidecache.Fields{"err": errors.New("boom")})
	l.Error("e", asidecache.Fields{"n": 3})

	entries := logs.AllUntimed()
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d level %v, want %v", i, e.Level, wantLevels[i])
		}
		if e.LoggerName != "asidecache" {
			t.Fatalf("entry %d logger name %q", i, e.LoggerName)
		}
	}
	if got := entries[1].ContextMap()["key"]; got != "k" {
		t.Fatalf("key field = %v", got)
	}
	if got := entries[2].ContextMap()["error"]; got != "boom" {
		t.Fatalf("err field = %v", got)
	}
}

func TestNilLoggerIsNop(t *testing.T) {
	New(nil).Error("dropped", asidecache.Fields{"k": 1})
}
