package services

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/coffee-shop/auth0"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/utils"
)

// ManagementAPI is the subset of the identity provider management API the
// user service needs
type ManagementAPI interface {
	ListRoles(ctx context.Context) ([]models.Role, error)
	ListRoleUsers(ctx context.Context, roleID string) ([]models.User, error)
	GetUserRoles(ctx context.Context, userID string) ([]models.Role, error)
	CreateUser(ctx context.Context, input models.CreateUserInput) (*models.User, error)
	AssignRoles(ctx context.Context, userID string, roleIDs []string) error
	UpdateUser(ctx context.Context, userID string, input models.UpdateUserInput) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// UserService manages staff accounts. Every operation is limited to the roles
// named by the caller's scopes: a manager scope reaches Manager users, a
// barista scope reaches Barista users.
type UserService struct {
	api    ManagementAPI
	logger *zap.Logger
}

// NewUserService creates a new UserService. A nil api yields a service whose
// operations all fail with ErrManagementDisabled.
func NewUserService(api ManagementAPI, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{api: api, logger: logger}
}

// Enabled reports whether management credentials were configured
func (s *UserService) Enabled() bool {
	return s != nil && s.api != nil
}

// ListRoles returns the roles within scopes
func (s *UserService) ListRoles(ctx context.Context, scopes []string) ([]models.Role, error) {
	if !s.Enabled() {
		return nil, ErrManagementDisabled
	}

	roles, err := s.api.ListRoles(ctx)
	if err != nil {
		return nil, s.translate("list roles", err)
	}
	return rolesInScope(roles, scopes), nil
}

// ListUsers returns every user holding a role within scopes. A user holding
// several such roles appears once with all of them.
func (s *UserService) ListUsers(ctx context.Context, scopes []string) ([]models.User, error) {
	roles, err := s.ListRoles(ctx, scopes)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0)
	index := make(map[string]int)
	for _, role := range roles {
		members, err := s.api.ListRoleUsers(ctx, role.ID)
		if err != nil {
			return nil, s.translate("list role users", err)
		}
		for _, u := range members {
			i, seen := index[u.UserID]
			if !seen {
				i = len(users)
				index[u.UserID] = i
				u.Roles = []string{}
				users = append(users, u)
			}
			users[i].Roles = append(users[i].Roles, role.Name)
		}
	}
	return users, nil
}

// CreateUser creates an account and assigns it the requested role
func (s *UserService) CreateUser(ctx context.Context, scopes []string, input models.CreateUserInput) (*models.User, error) {
	if !s.Enabled() {
		return nil, ErrManagementDisabled
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}
	if !(models.Role{Name: input.Role}).InScope(scopes) {
		return nil, ErrRoleOutOfScope.WithDetail("role", input.Role)
	}

	roles, err := s.api.ListRoles(ctx)
	if err != nil {
		return nil, s.translate("list roles", err)
	}
	role, ok := findRole(roles, input.Role)
	if !ok {
		return nil, ErrRoleNotFound.WithDetail("role", input.Role)
	}

	user, err := s.api.CreateUser(ctx, input)
	if err != nil {
		return nil, s.translate("create user", err)
	}

	if err := s.api.AssignRoles(ctx, user.UserID, []string{role.ID}); err != nil {
		// an account without a role is unreachable through this API
		if delErr := s.api.DeleteUser(ctx, user.UserID); delErr != nil {
			s.logger.Error("failed to remove user after role assignment failure",
				zap.String("user_id", user.UserID),
				zap.Error(delErr))
		}
		return nil, s.translate("assign roles", err)
	}

	user.Roles = []string{role.Name}
	s.logger.Info("user created",
		zap.String("user_id", user.UserID),
		zap.String("role", role.Name))
	return user, nil
}

// UpdateUser changes email, name or blocked state of a user within scopes
func (s *UserService) UpdateUser(ctx context.Context, scopes []string, userID string, input models.UpdateUserInput) (*models.User, error) {
	if !s.Enabled() {
		return nil, ErrManagementDisabled
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}
	if input.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	roles, err := s.authorizeTarget(ctx, scopes, userID)
	if err != nil {
		return nil, err
	}

	user, err := s.api.UpdateUser(ctx, userID, input)
	if err != nil {
		return nil, s.translate("update user", err)
	}
	user.Roles = roleNames(roles)

	s.logger.Info("user updated", zap.String("user_id", userID))
	return user, nil
}

// DeleteUser removes a user within scopes
func (s *UserService) DeleteUser(ctx context.Context, scopes []string, userID string) error {
	if !s.Enabled() {
		return ErrManagementDisabled
	}
	if _, err := s.authorizeTarget(ctx, scopes, userID); err != nil {
		return err
	}

	if err := s.api.DeleteUser(ctx, userID); err != nil {
		return s.translate("delete user", err)
	}

	s.logger.Info("user deleted", zap.String("user_id", userID))
	return nil
}

// authorizeTarget checks that userID holds at least one role within scopes
func (s *UserService) authorizeTarget(ctx context.Context, scopes []string, userID string) ([]models.Role, error) {
	roles, err := s.api.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, s.translate("get user roles", err)
	}
	target := models.User{UserID: userID, Roles: roleNames(roles)}
	if !target.HasRoleIn(scopes) {
		return nil, ErrUserOutOfScope.WithDetail("user_id", userID)
	}
	return roles, nil
}

// translate maps management API failures onto domain errors
func (s *UserService) translate(op string, err error) error {
	switch {
	case auth0.IsAPIStatus(err, http.StatusNotFound):
		return ErrUserNotFound.Wrap(err)
	case auth0.IsAPIStatus(err, http.StatusConflict):
		return ErrDuplicateUser.Wrap(err)
	case auth0.IsAPIStatus(err, http.StatusBadRequest):
		var apiErr *auth0.APIError
		errors.As(err, &apiErr)
		return ErrInvalidInput.Wrap(err).WithDetail("reason", apiErr.Message)
	}

	s.logger.Error("management API call failed", zap.String("operation", op), zap.Error(err))
	return ErrIdentityProvider.Wrap(err)
}

func rolesInScope(roles []models.Role, scopes []string) []models.Role {
	out := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if r.InScope(scopes) {
			out = append(out, r)
		}
	}
	return out
}

func findRole(roles []models.Role, name string) (models.Role, bool) {
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return models.Role{}, false
}

func roleNames(roles []models.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names
}
