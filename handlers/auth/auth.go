package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/CANDRY15/flashprint/identity"
	"github.com/CANDRY15/flashprint/model"
	"github.com/CANDRY15/flashprint/services/background"
	authutil "github.com/CANDRY15/flashprint/utils/auth"
	"github.com/CANDRY15/flashprint/utils/logger"
	"github.com/CANDRY15/flashprint/utils/middleware"
	"github.com/CANDRY15/flashprint/utils/response"
	"github.com/CANDRY15/flashprint/utils/validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConfirmationMailer sends the sign-up confirmation link
type ConfirmationMailer interface {
	SendConfirmationEmail(to, link string) error
}

// Config tunes the auth handler
type Config struct {
	// RequireEmailConfirmation refuses sign-in until the link was followed
	RequireEmailConfirmation bool
	// SiteOrigin is the default redirect after confirmation
	SiteOrigin string
	// RedirectOrigins may receive the post-confirmation redirect, in
	// addition to SiteOrigin
	RedirectOrigins []string
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *authutil.JWTManager
	blacklistService     *authutil.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	roles                middleware.RoleChecker
	mailer               ConfirmationMailer
	runner               background.Runner
	validator            *validation.Validator
	log                  *logger.Logger
	cfg                  Config
}

// Deps groups the collaborators of the auth handler. BruteForce may be nil
// when Redis is unavailable.
type Deps struct {
	JWT        *authutil.JWTManager
	BruteForce *middleware.BruteForceProtection
	Roles      middleware.RoleChecker
	Mailer     ConfirmationMailer
	Runner     background.Runner
	Log        *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, deps Deps, cfg Config) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           deps.JWT,
		blacklistService:     authutil.NewBlacklistService(db),
		bruteForceProtection: deps.BruteForce,
		roles:                deps.Roles,
		mailer:               deps.Mailer,
		runner:               deps.Runner,
		validator:            validation.NewValidator(),
		log:                  deps.Log,
		cfg:                  cfg,
	}
}

// SessionResponse is returned by sign-in and refresh
type SessionResponse struct {
	Session identity.Session `json:"session"`
	IsAdmin bool             `json:"is_admin"`
	Event   identity.Event   `json:"event"`
}

// SignUpResponse represents a successful registration
type SignUpResponse struct {
	User                 identity.User `json:"user"`
	ConfirmationRequired bool          `json:"confirmation_required"`
}

// SignUp creates an account and sends the confirmation link
// POST /api/v1/auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req validation.SignUpInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = strings.ToLower(validation.SanitizeString(req.Email))

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	var existing int64
	if err := h.db.WithContext(c.Context()).Model(&model.User{}).Where("email = ?", req.Email).Count(&existing).Error; err != nil {
		return response.InternalServerError(c, "Failed to create account")
	}
	if existing > 0 {
		return response.Conflict(c, "Un compte existe déjà avec cet email")
	}

	hash, err := authutil.HashPassword(req.Password)
	if errors.Is(err, authutil.ErrPasswordTooShort) || errors.Is(err, authutil.ErrPasswordTooLong) {
		return response.BadRequest(c, err.Error())
	}
	if err != nil {
		h.log.Error("password hashing failed", "error", err)
		return response.InternalServerError(c, "Failed to create account")
	}

	redirectTo := req.RedirectTo
	if redirectTo == "" {
		redirectTo = h.homeURL()
	} else if !h.redirectAllowed(redirectTo) {
		return response.BadRequest(c, "redirect_to must point to the FlashPrint site")
	}

	token := uuid.NewString()
	user := model.User{
		Email:             req.Email,
		PasswordHash:      hash,
		ConfirmationToken: &token,
		RedirectTo:        redirectTo,
	}
	if err := h.db.WithContext(c.Context()).Create(&user).Error; err != nil {
		return response.InternalServerError(c, "Failed to create account")
	}

	link := c.BaseURL() + "/api/v1/auth/confirm?token=" + url.QueryEscape(token)
	email := user.Email
	h.runner.Dispatch("email.confirmation", func(ctx context.Context) error {
		return h.mailer.SendConfirmationEmail(email, link)
	})

	return response.Created(c, SignUpResponse{
		User:                 identity.User{ID: user.ID, Email: user.Email},
		ConfirmationRequired: h.cfg.RequireEmailConfirmation,
	})
}

// Confirm marks the email as confirmed and redirects to the address given
// at sign-up
// GET /api/v1/auth/confirm?token=
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return response.BadRequest(c, "Confirmation token is required")
	}

	var user model.User
	err := h.db.WithContext(c.Context()).Where("confirmation_token = ?", token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.BadRequest(c, "Lien de confirmation invalide ou déjà utilisé")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to confirm email")
	}

	now := time.Now()
	err = h.db.WithContext(c.Context()).Model(&user).Updates(map[string]interface{}{
		"email_confirmed_at": now,
		"confirmation_token": nil,
	}).Error
	if err != nil {
		return response.InternalServerError(c, "Failed to confirm email")
	}

	redirect := user.RedirectTo
	if redirect == "" || !h.redirectAllowed(redirect) {
		redirect = h.homeURL()
	}
	return c.Redirect(redirect, fiber.StatusFound)
}

func (h *AuthHandler) homeURL() string {
	return strings.TrimRight(h.cfg.SiteOrigin, "/") + "/"
}

// redirectAllowed accepts absolute http(s) URLs on the site origin or on
// one of the configured redirect origins
func (h *AuthHandler) redirectAllowed(raw string) bool {
	target, ok := originOf(raw)
	if !ok {
		return false
	}
	for _, allowed := range append([]string{h.cfg.SiteOrigin}, h.cfg.RedirectOrigins...) {
		if origin, ok := originOf(allowed); ok && origin == target {
			return true
		}
	}
	return false
}

// originOf returns scheme://host[:port] in lower case
func originOf(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || u.User != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	return scheme + "://" + strings.ToLower(u.Host), true
}

// isAdmin asks has_role; a failure counts as not admin
func (h *AuthHandler) isAdmin(ctx context.Context, userID uint) bool {
	has, err := h.roles.HasRole(ctx, userID, model.RoleAdmin)
	if err != nil {
		h.log.Warn("admin role check failed", "user_id", userID, "error", err)
		return false
	}
	return has
}

func (h *AuthHandler) sessionResponse(c *fiber.Ctx, user *model.User, event identity.Event) error {
	pair, err := h.jwtManager.GeneratePair(user.ID, user.Email, user.TokenVersion)
	if err != nil {
		return response.InternalServerError(c, "Failed to generate tokens")
	}

	return response.Success(c, SessionResponse{
		Session: identity.Session{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    pair.ExpiresAt,
			User:         identity.User{ID: user.ID, Email: user.Email},
		},
		IsAdmin: h.isAdmin(c.Context(), user.ID),
		Event:   event,
	})
}
