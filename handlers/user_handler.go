package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/services"
	"github.com/upb/coffee-shop/utils"
)

// UserService is the staff management behaviour the handler depends on.
// scopes are the caller's role scopes as forwarded by the authorization gate.
type UserService interface {
	ListRoles(ctx context.Context, scopes []string) ([]models.Role, error)
	ListUsers(ctx context.Context, scopes []string) ([]models.User, error)
	CreateUser(ctx context.Context, scopes []string, input models.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, scopes []string, userID string, input models.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, scopes []string, userID string) error
}

// UserHandler handles the staff management endpoints
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// ListRoles handles GET /roles
func (h *UserHandler) ListRoles(w http.ResponseWriter, r *http.Request, scopes []string) {
	roles, err := h.users.ListRoles(r.Context(), scopes)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, utils.Envelope{"roles": roles})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request, scopes []string) {
	users, err := h.users.ListUsers(r.Context(), scopes)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, utils.Envelope{"users": users})
}

// Create handles POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request, scopes []string) {
	var input models.CreateUserInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	user, err := h.users.CreateUser(r.Context(), scopes, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("staff account created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("actor", subject(r)),
		zap.String("user_id", user.UserID))
	_ = utils.WriteSuccess(w, http.StatusCreated, utils.Envelope{"user": user})
}

// Update handles PATCH /users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request, scopes []string) {
	var input models.UpdateUserInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), scopes, chi.URLParam(r, "id"), input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, utils.Envelope{"user": user})
}

// Delete handles DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request, scopes []string) {
	userID := chi.URLParam(r, "id")
	if err := h.users.DeleteUser(r.Context(), scopes, userID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("staff account deleted",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("actor", subject(r)),
		zap.String("user_id", userID))
	_ = utils.WriteOK(w, utils.Envelope{"delete": userID})
}

// Me handles GET /users/me: who the caller is, what the token granted and
// which of those permissions let the request through
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request, scopes []string) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	_ = utils.WriteOK(w, utils.Envelope{
		"user": utils.Envelope{
			"sub":           claims.Subject,
			"permissions":   claims.Permissions,
			"authorized_by": middleware.GetPermissionsFromContext(r.Context()),
			"scopes":        scopes,
		},
	})
}

func subject(r *http.Request) string {
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	return ""
}

var _ UserService = (*services.UserService)(nil)
