package handlers

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"researchdesk/internal/jobs"
	"researchdesk/pkg/auth"
)

// JobRunner triggers a registered background job by name
type JobRunner interface {
	RunNow(name string) error
}

// HealthHandler serves liveness and debug endpoints
type HealthHandler struct {
	jwtAuth *auth.JWTAuth
	runner  JobRunner
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(jwtAuth *auth.JWTAuth, runner JobRunner) *HealthHandler {
	return &HealthHandler{jwtAuth: jwtAuth, runner: runner}
}

// Test is a simple connectivity check
// GET /test
func (h *HealthHandler) Test(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message":   "Server is working",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Health reports service status
// GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	return c.JSON(fiber.Map{
		"status": "ok",
		"ts":     time.Now().UnixMilli(),
		"env":    env,
	})
}

// DebugSession decodes the caller's JWT, if any, without requiring auth
// GET /debug/session
func (h *HealthHandler) DebugSession(c *fiber.Ctx) error {
	var token string
	if authHeader := c.Get("Authorization"); authHeader != "" {
		if extracted, err := auth.ExtractToken(authHeader); err == nil {
			token = extracted
		}
	}
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		return c.JSON(fiber.Map{"user": nil})
	}

	user, err := h.jwtAuth.VerifyToken(token)
	if err != nil {
		return c.JSON(fiber.Map{"user": nil, "error": "invalid_token"})
	}
	return c.JSON(fiber.Map{"user": user})
}

// DebugRunJob triggers a scheduled job outside its schedule
// POST /debug/jobs/:name/run
func (h *HealthHandler) DebugRunJob(c *fiber.Ctx) error {
	name := c.Params("name")

	if err := h.runner.RunNow(name); err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Job not found",
			})
		}
		log.Printf("❌ Job '%s' failed: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Job failed",
		})
	}

	return c.JSON(fiber.Map{"success": true, "job": name})
}
