//go:build !integration

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"health-premium-service/internal/config"
)

func TestWith(t *testing.T) {
	t.Run("should attach trace and user ids from context", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)
		ctx := WithUserID(WithTraceID(context.Background(), "trace-1"), "user-1")

		With(ctx, &base).Info().Msg("hello")

		var line map[string]any
		if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
			t.Fatalf("expected json log line, got %q", buf.String())
		}
		if line["trace_id"] != "trace-1" || line["user_id"] != "user-1" {
			t.Errorf("unexpected fields %v", line)
		}
		if TraceIDFrom(ctx) != "trace-1" {
			t.Errorf("expected trace id round trip")
		}
	})

	t.Run("should leave fields out when context is empty", func(t *testing.T) {
		var buf bytes.Buffer
		base := zerolog.New(&buf)
		With(context.Background(), &base).Info().Msg("hello")
		if bytes.Contains(buf.Bytes(), []byte("trace_id")) {
			t.Errorf("unexpected trace_id in %q", buf.String())
		}
	})
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)
	Component(&base, "PaymentUC").Info().Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte(`"component":"PaymentUC"`)) {
		t.Errorf("expected component field in %q", buf.String())
	}
}

func TestNew(t *testing.T) {
	t.Run("should tag the service and honor the level", func(t *testing.T) {
		var buf bytes.Buffer
		l := newLogger(config.LogConfig{Level: "warn", Format: "json"}, false, &buf)
		l.Info().Msg("dropped")
		l.Warn().Msg("kept")

		var line map[string]any
		if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
			t.Fatalf("expected one json line, got %q: %v", buf.String(), err)
		}
		if line["service"] != ServiceName || line["message"] != "kept" {
			t.Errorf("unexpected line %v", line)
		}
	})

	t.Run("should default an unknown level to info", func(t *testing.T) {
		var buf bytes.Buffer
		l := newLogger(config.LogConfig{Level: "loud"}, false, &buf)
		l.Debug().Msg("dropped")
		l.Info().Msg("kept")
		if bytes.Contains(buf.Bytes(), []byte("dropped")) || !bytes.Contains(buf.Bytes(), []byte("kept")) {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}
