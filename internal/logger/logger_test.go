package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNewWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	l, err := New(dir, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Infow("hello", "k", "v")
	_ = l.Sync()

	want := filepath.Join(dir, time.Now().Format("2006-01-02")+".log")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("log file missing: %v", err)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(t.TempDir(), "chatty", false); err == nil {
		t.Fatal("expected level parse error")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("fallback logger is nil")
	}

	l := zap.NewNop().Sugar()
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("context logger not returned")
	}
}
