package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/substring/auth-backend/internal/domain"
	"github.com/substring/auth-backend/internal/dto"
	"github.com/substring/auth-backend/internal/middleware"
	"github.com/substring/auth-backend/internal/service"
	"github.com/substring/auth-backend/pkg/response"
)

// UserHandler handles user management HTTP requests. All routes are
// admin-gated in the router except update, which a user may call on
// their own account.
type UserHandler struct {
	authService service.AuthService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(authService service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// List returns all users
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.authService.ListUsers(c.Request.Context())
	if err != nil {
		response.Unavailable(c)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewUserResponse(u))
	}
	response.Success(c, out)
}

// Get returns a user by ID
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.authService.GetUser(c.Request.Context(), c.Param("id"))
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

// GetByEmail returns a user by email
// GET /api/v1/users/email/:email
func (h *UserHandler) GetByEmail(c *gin.Context) {
	user, err := h.authService.GetUserByEmail(c.Request.Context(), c.Param("email"))
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

// Update updates a user's profile. Admins may update anyone; everyone
// else only themselves.
// PUT /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Unauthorized(c, "UNAUTHORIZED", "User not authenticated")
		return
	}

	id := c.Param("id")
	if id != claims.UserID && !claims.HasRole(domain.RoleAdmin) {
		response.Forbidden(c, "FORBIDDEN", "Cannot update another user")
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Only admins may flip the enabled flag.
	if req.Enabled != nil && !claims.HasRole(domain.RoleAdmin) {
		response.Forbidden(c, "FORBIDDEN", "Cannot change account status")
		return
	}

	user, err := h.authService.UpdateUser(c.Request.Context(), id, &req)
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

// Delete deletes a user
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.authService.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		response.Unavailable(c)
		return
	}
	response.NoContent(c)
}
