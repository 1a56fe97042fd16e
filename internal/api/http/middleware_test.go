package http

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/booking-service/internal/observability"
	apperrors "github.com/spec-kit/booking-service/pkg/util/errorutil"
)

func newMiddlewareApp() *fiber.App {
	return newMiddlewareAppWithLogger(zap.NewNop())
}

func newMiddlewareAppWithLogger(logger *zap.Logger) *fiber.App {
	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), time.Second)
	app.Get("/panic", func(c *fiber.Ctx) error { panic("boom") })
	app.Get("/plain", func(c *fiber.Ctx) error { return errors.New("db exploded") })
	app.Get("/range", func(c *fiber.Ctx) error {
		return apperrors.NewInvalidRange(map[string]any{"checkInDate": "2024-01-05"})
	})
	app.Get("/overlap", func(c *fiber.Ctx) error {
		return apperrors.NewConflict("room already booked for the requested dates", map[string]any{"room_id": "r1"})
	})
	app.Get("/deadline", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		return c.JSON(fiber.Map{"deadline": ok})
	})
	return app
}

func TestErrorHandlingMiddleware(t *testing.T) {
	app := newMiddlewareApp()

	tests := []struct {
		path    string
		status  int
		code    string
		details bool
	}{
		{"/panic", fiber.StatusInternalServerError, apperrors.CodeInternal, false},
		{"/plain", fiber.StatusInternalServerError, apperrors.CodeInternal, false},
		{"/range", fiber.StatusBadRequest, apperrors.CodeInvalidRange, true},
		{"/nowhere", fiber.StatusNotFound, apperrors.CodeNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))

			var body struct {
				Error struct {
					Code    string         `json:"code"`
					Message string         `json:"message"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
			assert.Equal(t, tt.details, body.Error.Details != nil)
		})
	}
}

func TestRequestTimeoutMiddleware(t *testing.T) {
	app := newMiddlewareApp()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/deadline", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["deadline"])
}

func TestErrorHandlingMiddleware_RequestIDInBodyAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	app := newMiddlewareAppWithLogger(zap.New(core))

	tests := []struct {
		path  string
		level zapcore.Level
		msg   string
	}{
		{"/overlap", zapcore.InfoLevel, "request rejected"},
		{"/plain", zapcore.ErrorLevel, "request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			headerID := resp.Header.Get(fiber.HeaderXRequestID)
			require.NotEmpty(t, headerID)

			var body struct {
				Error struct {
					Code      string `json:"code"`
					RequestID string `json:"requestId"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, headerID, body.Error.RequestID)

			entries := logs.FilterMessage(tt.msg).FilterField(zap.String("request_id", headerID)).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, body.Error.Code, fields["code"])
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, fiber.MethodGet, fields["method"])
		})
	}
}
