package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngolub/subscriptions/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults to JSON at info level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf))

		log.Debug("hidden")
		log.Info("visible", "key", "value")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "visible", record["msg"])
		assert.Equal(t, "value", record["key"])
	})

	t.Run("development mode logs text at debug level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithDevelopment("billing"), logger.WithOutput(&buf))

		log.Debug("detail")

		out := buf.String()
		assert.Contains(t, out, "detail")
		assert.Contains(t, out, "service=billing")
	})

	t.Run("static attributes appear on every record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("version", "1.2.3")),
		)

		log.Info("one")
		log.Info("two")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Contains(t, line, `"version":"1.2.3"`)
		}
	})

	t.Run("context values are extracted per record", func(t *testing.T) {
		t.Parallel()

		type ctxKey struct{}

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithContextValue("request_id", ctxKey{}),
		)

		ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
		log.InfoContext(ctx, "with value")
		log.InfoContext(context.Background(), "without value")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"request_id":"req-42"`)
		assert.NotContains(t, lines[1], "request_id")
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	assert.Equal(t, id.String(), logger.SubscriberID(id).Value.String())
	assert.Equal(t, "pro", logger.PlanID("pro").Value.String())
	assert.Equal(t, "paypal", logger.Driver("paypal").Value.String())
	assert.Equal(t, slog.Attr{}, logger.Error(nil))
}
