package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/asidecache"
)

func TestLevelsAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("d", nil)
	l.Warn("w", asidecache.Fields{"key": "k", "err": errors.New("boom")})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != logrus.DebugLevel || entries[0].Message != "d" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	last := hook.LastEntry()
	if last.Level != logrus.WarnLevel {
		t.Fatalf("level %v", last.Level)
	}
	if last.Data["component"] != "asidecache" || last.Data["key"] != "k" {
		t.Fatalf("fields %v", last.Data)
	}
	if err, _ := last.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "boom" {
		t.Fatalf("error field %v", last.Data[logrus.ErrorKey])
	}
}
