package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"researchdesk/pkg/auth"
)

// JWTAuthMiddleware verifies bearer tokens and stores the authenticated user
// in the request context. The token may arrive in the Authorization header,
// the ?token= query parameter, or a "token" field in a JSON body.
func JWTAuthMiddleware(jwtAuth *auth.JWTAuth) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := tokenFromRequest(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Missing or invalid authorization token",
			})
		}

		user, err := jwtAuth.VerifyToken(token)
		if err != nil {
			log.Printf("❌ Auth failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid or expired token",
			})
		}

		c.Locals("user_id", user.ID)
		c.Locals("username", user.Username)
		c.Locals("user_email", user.Email)
		c.Locals("is_premium", user.IsPremium)
		return c.Next()
	}
}

func tokenFromRequest(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		if token, err := auth.ExtractToken(authHeader); err == nil {
			return token
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	// Some clients send the token in the JSON body
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err == nil && body.Token != "" {
		return body.Token
	}

	return ""
}

// UserID returns the authenticated user's id from the request context
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}
