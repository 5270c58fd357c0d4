package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	app := fiber.New()
	app.Use(RequestLogger(log))
	app.Get("/ok", func(c *fiber.Ctx) error {
		if c.Locals(RequestIDKey) == nil {
			t.Error("request id not stored in locals")
		}
		return c.SendString("ok")
	})
	app.Get("/missing", func(c *fiber.Ctx) error { return fiber.ErrNotFound })

	tests := []struct {
		name      string
		path      string
		requestID string
		status    int
		level     logrus.Level
	}{
		{"success", "/ok", "", fiber.StatusOK, logrus.InfoLevel},
		{"reused id", "/ok", "abc-123", fiber.StatusOK, logrus.InfoLevel},
		{"handler error", "/missing", "", fiber.StatusNotFound, logrus.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.requestID != "" {
				req.Header.Set("X-Request-ID", tt.requestID)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			got := resp.Header.Get("X-Request-ID")
			if got == "" || (tt.requestID != "" && got != tt.requestID) {
				t.Errorf("X-Request-ID = %q", got)
			}

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("no log entry")
			}
			if entry.Level != tt.level {
				t.Errorf("level = %v, want %v", entry.Level, tt.level)
			}
			if entry.Data["status_code"] != tt.status {
				t.Errorf("status_code = %v, want %d", entry.Data["status_code"], tt.status)
			}
			if entry.Data["request_id"] != got {
				t.Errorf("logged request_id = %v, header %q", entry.Data["request_id"], got)
			}
		})
	}
}
