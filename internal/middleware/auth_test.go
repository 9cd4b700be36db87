package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"researchdesk/pkg/auth"
)

func newAuthedApp(t *testing.T) (*fiber.App, string) {
	t.Helper()

	jwtAuth, err := auth.NewJWTAuth("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	app := fiber.New()
	app.Get("/protected", JWTAuthMiddleware(jwtAuth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": UserID(c)})
	})
	app.Post("/protected", JWTAuthMiddleware(jwtAuth), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": UserID(c)})
	})

	token, err := jwtAuth.GenerateToken(&auth.User{ID: "user-1", Username: "alice", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	return app, token
}

func TestJWTAuthMiddleware_HeaderToken(t *testing.T) {
	app, token := newAuthedApp(t)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestJWTAuthMiddleware_QueryToken(t *testing.T) {
	app, token := newAuthedApp(t)

	req := httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestJWTAuthMiddleware_BodyToken(t *testing.T) {
	app, token := newAuthedApp(t)

	req := httptest.NewRequest(http.MethodPost, "/protected", strings.NewReader(`{"token":"`+token+`"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestJWTAuthMiddleware_Rejections(t *testing.T) {
	app, _ := newAuthedApp(t)

	tests := []struct {
		name  string
		setup func(req *http.Request)
	}{
		{"no token", func(req *http.Request) {}},
		{"garbage token", func(req *http.Request) { req.Header.Set("Authorization", "Bearer not.a.jwt") }},
		{"wrong scheme", func(req *http.Request) { req.Header.Set("Authorization", "Basic abc") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			tt.setup(req)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", resp.StatusCode)
			}
		})
	}
}
