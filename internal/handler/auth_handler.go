package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/substring/auth-backend/internal/dto"
	"github.com/substring/auth-backend/internal/middleware"
	"github.com/substring/auth-backend/internal/service"
	"github.com/substring/auth-backend/internal/token"
	"github.com/substring/auth-backend/pkg/response"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if valid, msg := req.ValidateEmail(); !valid {
		response.Error(c, http.StatusBadRequest, "INVALID_EMAIL", msg)
		return
	}
	if valid, msg := req.ValidatePassword(); !valid {
		response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", msg)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			response.Error(c, http.StatusConflict, "EMAIL_TAKEN", "User with this email already exists")
			return
		}
		if errors.Is(err, service.ErrWeakPassword) {
			response.Error(c, http.StatusBadRequest, "WEAK_PASSWORD", "Password does not meet strength requirements")
			return
		}
		response.Unavailable(c)
		return
	}

	response.Created(c, dto.NewUserResponse(user))
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			response.Forbidden(c, "ACCOUNT_DISABLED", "User account is disabled")
			return
		}
		response.Unavailable(c)
		return
	}

	response.Success(c, result)
}

// Refresh handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		code, ok := refreshErrorCode(err)
		if ok {
			response.Unauthorized(c, code, "Refresh token rejected")
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			response.Forbidden(c, "ACCOUNT_DISABLED", "User account is disabled")
			return
		}
		response.Unavailable(c)
		return
	}

	response.Success(c, result)
}

// refreshErrorCode maps rotation failures to their reason codes. All of
// them are 401s; only the code differs.
func refreshErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		return "TOKEN_NOT_FOUND", true
	case errors.Is(err, token.ErrTokenExpired):
		return "TOKEN_EXPIRED", true
	case errors.Is(err, token.ErrTokenRevoked):
		return "TOKEN_REVOKED", true
	case errors.Is(err, token.ErrTokenReused):
		return "TOKEN_REUSED", true
	case errors.Is(err, token.ErrInvalidToken):
		return "INVALID_TOKEN", true
	}
	return "", false
}

// Logout handles user logout
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			response.Unauthorized(c, "INVALID_TOKEN", "Invalid refresh token")
			return
		}
		response.Unavailable(c)
		return
	}

	response.NoContent(c)
}

// LogoutAll revokes every session of the authenticated user
// POST /api/v1/auth/logout-all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "UNAUTHORIZED", "User not authenticated")
		return
	}

	if err := h.authService.LogoutAll(c.Request.Context(), claims.UserID); err != nil {
		response.Unavailable(c)
		return
	}

	response.Success(c, gin.H{"message": "All sessions logged out"})
}

// Me returns current user info
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "UNAUTHORIZED", "User not authenticated")
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.NotFound(c, "User not found")
			return
		}
		response.Unavailable(c)
		return
	}

	response.Success(c, dto.NewUserResponse(user))
}
