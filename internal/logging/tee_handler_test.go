package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestTeeHandlerCollapses(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when every handler is nil")
	}
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := TeeHandler(nil, inner, nil); h != inner {
		t.Fatal("expected the single non-nil handler to be returned unwrapped")
	}
}

func TestTeeHandlerRoutesByLevel(t *testing.T) {
	var infoBuf, debugBuf bytes.Buffer
	infoHandler := slog.NewJSONHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	h := TeeHandler(infoHandler, debugHandler)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug to be enabled through the debug handler")
	}

	logger := slog.New(h)
	logger.Debug("progress tick")
	if infoBuf.Len() != 0 {
		t.Fatalf("info handler received debug record: %s", infoBuf.String())
	}
	if debugBuf.Len() == 0 {
		t.Fatal("debug handler missed debug record")
	}

	logger.Info("download completed")
	if !bytes.Contains(infoBuf.Bytes(), []byte("download completed")) || !bytes.Contains(debugBuf.Bytes(), []byte("download completed")) {
		t.Fatal("expected info record in both outputs")
	}
}

func TestTeeHandlerPropagatesAttrsAndGroups(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := TeeHandler(slog.NewJSONHandler(&buf1, nil), slog.NewJSONHandler(&buf2, nil))
	logger := slog.New(h).With(slog.String(FieldJobID, "abc")).WithGroup("fetch")
	logger.Info("grouped", slog.String("url", "https://example.com/v"))

	for i, buf := range []*bytes.Buffer{&buf1, &buf2} {
		out := buf.Bytes()
		if !bytes.Contains(out, []byte(`"job_id":"abc"`)) {
			t.Fatalf("output %d missing job_id: %s", i, out)
		}
		if !bytes.Contains(out, []byte(`"fetch":{"url"`)) {
			t.Fatalf("output %d missing group: %s", i, out)
		}
	}
}

type failingHandler struct{ err error }

func (f failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (f failingHandler) Handle(context.Context, slog.Record) error { return f.err }

func (f failingHandler) WithAttrs([]slog.Attr) slog.Handler { return f }

func (f failingHandler) WithGroup(string) slog.Handler { return f }

func TestTeeHandlerJoinsErrors(t *testing.T) {
	first := errors.New("disk full")
	second := errors.New("closed")
	h := TeeHandler(failingHandler{first}, failingHandler{second})
	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both errors, got %v", err)
	}
}
