package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"researchdesk/internal/config"
	"researchdesk/internal/services"
	"researchdesk/pkg/auth"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleOAuthHandler runs the Google sign-in flow. No server sessions are
// kept; a successful callback redirects to the frontend with a JWT in the
// query string, which the frontend exchanges via /api/auth/oauth-complete.
type GoogleOAuthHandler struct {
	oauthConfig *oauth2.Config
	jwtAuth     *auth.JWTAuth
	userService *services.UserService
	frontendURL string
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// NewGoogleOAuthHandler creates a new Google OAuth handler
func NewGoogleOAuthHandler(cfg *config.Config, jwtAuth *auth.JWTAuth, userService *services.UserService) *GoogleOAuthHandler {
	return &GoogleOAuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.BackendURL + "/auth/google/callback",
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
		jwtAuth:     jwtAuth,
		userService: userService,
		frontendURL: cfg.FrontendURL,
	}
}

// Enabled reports whether Google credentials are configured
func (h *GoogleOAuthHandler) Enabled() bool {
	return h.oauthConfig.ClientID != "" && h.oauthConfig.ClientSecret != ""
}

// Redirect sends the user to the Google consent screen
// GET /auth/google
func (h *GoogleOAuthHandler) Redirect(c *fiber.Ctx) error {
	if !h.Enabled() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"error":   "Google OAuth is not configured",
		})
	}

	state, err := randomState()
	if err != nil {
		log.Printf("❌ OAuth state generation failed: %v", err)
		return internalError(c)
	}

	// The state round-trips through a short-lived cookie
	c.Cookie(&fiber.Cookie{
		Name:     "oauth_state",
		Value:    state,
		MaxAge:   int((5 * time.Minute).Seconds()),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.Redirect(h.oauthConfig.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

// Callback exchanges the authorization code, upserts the user and redirects
// to the frontend with a JWT
// GET /auth/google/callback
func (h *GoogleOAuthHandler) Callback(c *fiber.Ctx) error {
	if c.Query("error") != "" {
		return h.failRedirect(c, "oauth_failed")
	}

	state := c.Query("state")
	if state == "" || state != c.Cookies("oauth_state") {
		log.Printf("❌ OAuth callback: state mismatch")
		return h.failRedirect(c, "oauth_failed")
	}
	c.ClearCookie("oauth_state")

	code := c.Query("code")
	if code == "" {
		return h.failRedirect(c, "oauth_failed")
	}

	ctx, cancel := context.WithTimeout(c.Context(), 15*time.Second)
	defer cancel()

	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		log.Printf("❌ OAuth code exchange failed: %v", err)
		return h.failRedirect(c, "oauth_failed")
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		log.Printf("❌ OAuth userinfo fetch failed: %v", err)
		return h.failRedirect(c, "oauth_failed")
	}
	if info.Email == "" {
		log.Printf("❌ OAuth callback: no email in Google profile")
		return h.failRedirect(c, "no_user")
	}

	email := strings.ToLower(info.Email)
	user, err := h.userService.FindByEmail(ctx, email)
	if err != nil {
		log.Printf("❌ OAuth user lookup failed: %v", err)
		return h.failRedirect(c, "server_error")
	}

	if user == nil {
		displayName := info.Name
		if displayName == "" {
			displayName = strings.Split(email, "@")[0]
		}
		username, err := h.userService.GenerateUniqueUsername(ctx, displayName)
		if err != nil {
			log.Printf("❌ OAuth username generation failed: %v", err)
			return h.failRedirect(c, "server_error")
		}

		user, err = h.userService.Create(ctx, username, email, "google-oauth", false)
		if err != nil {
			log.Printf("❌ OAuth user creation failed: %v", err)
			return h.failRedirect(c, "server_error")
		}
		log.Printf("✅ OAuth user created: %s (%s)", user.Username, user.ID)
	}

	jwtToken, err := h.jwtAuth.GenerateToken(&auth.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		IsPremium: user.IsPremium,
	})
	if err != nil {
		log.Printf("❌ OAuth token generation failed: %v", err)
		return h.failRedirect(c, "server_error")
	}

	redirectURL := fmt.Sprintf("%s/login?token=%s&oauth=success", h.frontendURL, url.QueryEscape(jwtToken))
	return c.Redirect(redirectURL, fiber.StatusTemporaryRedirect)
}

func (h *GoogleOAuthHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := h.oauthConfig.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		return nil, fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &info, nil
}

func (h *GoogleOAuthHandler) failRedirect(c *fiber.Ctx, reason string) error {
	return c.Redirect(fmt.Sprintf("%s/login?error=%s", h.frontendURL, reason), fiber.StatusTemporaryRedirect)
}

func randomState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
