package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/CANDRY15/flashprint/identity"
	"github.com/CANDRY15/flashprint/model"
	authutil "github.com/CANDRY15/flashprint/utils/auth"
	"github.com/CANDRY15/flashprint/utils/middleware"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SignIn handles password sign-in
// POST /api/v1/auth/signin
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req validation.SignInInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(validation.SanitizeString(req.Email))

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()

	var user model.User
	err := h.db.WithContext(c.Context()).Where("email = ?", req.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return response.InternalServerError(c, "Failed to sign in")
	}
	if err != nil || authutil.CheckPassword(user.PasswordHash, req.Password) != nil {
		if h.bruteForceProtection != nil {
			h.bruteForceProtection.RecordFailedAttempt(c, ip)
		}
		return response.Unauthorized(c, "Email ou mot de passe incorrect")
	}

	if h.cfg.RequireEmailConfirmation && !user.IsConfirmed() {
		return response.Forbidden(c, "Veuillez confirmer votre adresse email")
	}

	if h.bruteForceProtection != nil {
		h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)
	}

	now := time.Now()
	if err := h.db.WithContext(c.Context()).Model(&user).Update("last_sign_in_at", now).Error; err != nil {
		h.log.Warn("failed to record sign-in time", "user_id", user.ID, "error", err)
	}

	return h.sessionResponse(c, &user, identity.EventSignedIn)
}

// RefreshToken exchanges a refresh token for a new pair. The old refresh
// token is revoked.
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.RefreshToken == "" {
		return response.BadRequest(c, "Refresh token is required")
	}

	claims, err := h.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return response.Unauthorized(c, "Invalid or expired refresh token")
	}

	if claims.TokenType != authutil.TokenTypeRefresh {
		return response.Unauthorized(c, "Invalid token type")
	}

	isRevoked, err := h.blacklistService.IsTokenRevoked(c.Context(), claims.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to check token status")
	}
	if isRevoked {
		return response.Unauthorized(c, "Token has been revoked")
	}

	var user model.User
	if err := h.db.WithContext(c.Context()).First(&user, claims.UserID).Error; err != nil {
		return response.Unauthorized(c, "User not found")
	}

	if user.TokenVersion != claims.TokenVersion {
		return response.Unauthorized(c, "Token has been invalidated")
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := h.blacklistService.RevokeToken(c.Context(), claims.ID, user.ID, expiresAt, "token_refresh"); err != nil {
		// The old token still expires on its own
		h.log.Warn("failed to revoke refresh token", "user_id", user.ID, "error", err)
	}

	return h.sessionResponse(c, &user, identity.EventTokenRefreshed)
}

// SignOut revokes the access token used for the request
// POST /api/v1/auth/signout
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	jti, ok := middleware.GetTokenJTI(c)
	if !ok {
		return response.BadRequest(c, "No token ID found")
	}

	expiresAt := time.Now().Add(h.jwtManager.AccessExpiry())
	if claims, ok := middleware.GetClaims(c); ok && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	if err := h.blacklistService.RevokeToken(c.Context(), jti, userID, expiresAt, "sign_out"); err != nil {
		return response.InternalServerError(c, "Failed to sign out")
	}

	return response.SuccessWithMessage(c, "Vous êtes déconnecté", fiber.Map{
		"event": identity.EventSignedOut,
	})
}

// Session returns the current user and admin flag
// GET /api/v1/auth/session
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	return response.Success(c, fiber.Map{
		"user":     identity.User{ID: user.ID, Email: user.Email},
		"is_admin": h.isAdmin(c.Context(), user.ID),
	})
}

// HasRole is has_role(current user, role)
// GET /api/v1/auth/has-role?role=admin
func (h *AuthHandler) HasRole(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "Not authenticated")
	}

	role := c.Query("role", model.RoleAdmin)
	has, err := h.roles.HasRole(c.Context(), userID, role)
	if err != nil {
		h.log.Error("has_role failed", "user_id", userID, "role", role, "error", err)
		return response.InternalServerError(c, "Failed to check role")
	}

	return response.Success(c, fiber.Map{
		"role":     role,
		"has_role": has,
	})
}
