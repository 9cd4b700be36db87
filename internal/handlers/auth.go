package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"researchdesk/internal/models"
	"researchdesk/internal/services"
	"researchdesk/pkg/auth"
)

// AuthHandler handles registration, login and token verification
type AuthHandler struct {
	jwtAuth     *auth.JWTAuth
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(jwtAuth *auth.JWTAuth, userService *services.UserService) *AuthHandler {
	return &AuthHandler{jwtAuth: jwtAuth, userService: userService}
}

// Register creates a new user account
// POST /api/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "All fields are required",
		})
	}
	if !strings.Contains(req.Email, "@") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Valid email address is required",
		})
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	existing, err := h.userService.FindByUsername(c.Context(), req.Username)
	if err != nil {
		log.Printf("❌ Registration lookup failed: %v", err)
		return internalError(c)
	}
	if existing != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Username already exists",
		})
	}

	existing, err = h.userService.FindByEmail(c.Context(), req.Email)
	if err != nil {
		log.Printf("❌ Registration lookup failed: %v", err)
		return internalError(c)
	}
	if existing != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Email already exists",
		})
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Password hashing failed: %v", err)
		return internalError(c)
	}

	user, err := h.userService.Create(c.Context(), req.Username, req.Email, passwordHash, false)
	if err != nil {
		log.Printf("❌ User creation failed: %v", err)
		return internalError(c)
	}

	token, err := h.issueToken(user)
	if err != nil {
		log.Printf("❌ Token generation failed: %v", err)
		return internalError(c)
	}

	log.Printf("✅ User registered: %s (%s)", user.Username, user.ID)
	return c.JSON(models.AuthResponse{Success: true, Token: token, User: user.ToResponse()})
}

// Login authenticates with username and password
// POST /api/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	user, err := h.userService.FindByUsername(c.Context(), req.Username)
	if err != nil {
		log.Printf("❌ Login lookup failed: %v", err)
		return internalError(c)
	}
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid credentials",
		})
	}
	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil || !valid {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid credentials",
		})
	}

	token, err := h.issueToken(user)
	if err != nil {
		log.Printf("❌ Token generation failed: %v", err)
		return internalError(c)
	}

	if err := h.userService.TouchLastLogin(c.Context(), user.ID); err != nil {
		log.Printf("⚠️ Failed to update last login for %s: %v", user.ID, err)
	}

	log.Printf("✅ User logged in: %s (%s)", user.Username, user.ID)
	return c.JSON(models.AuthResponse{Success: true, Token: token, User: user.ToResponse()})
}

// OAuthComplete verifies a token handed back from the OAuth redirect and
// returns the user it belongs to
// POST /api/auth/oauth-complete
func (h *AuthHandler) OAuthComplete(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil || req.Token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "No token provided",
		})
	}

	tokenUser, err := h.jwtAuth.VerifyToken(req.Token)
	if err != nil {
		log.Printf("❌ OAuth complete: token verification failed: %v", err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid or expired token",
		})
	}

	user, err := h.userService.FindByID(c.Context(), tokenUser.ID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "User not found",
		})
	}

	return c.JSON(models.AuthResponse{Success: true, Token: req.Token, User: user.ToResponse()})
}

// Status reports whether the bearer token maps to a live user
// GET /api/auth/status
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	user, err := h.userService.FindByID(c.Context(), userID)
	if err != nil {
		return c.JSON(fiber.Map{"authenticated": false})
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          user.ToResponse(),
	})
}

func (h *AuthHandler) issueToken(user *models.User) (string, error) {
	return h.jwtAuth.GenerateToken(&auth.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsPremium: user.IsPremium,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   "Internal server error",
	})
}
