package auth0

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/upb/coffee-shop/internal/observability"
	"github.com/upb/coffee-shop/models"
)

// maxPageSize is the largest page the management API serves
const maxPageSize = 100

// APIError is a non-2xx answer from the management API
type APIError struct {
	StatusCode int    `json:"statusCode"`
	ErrorText  string `json:"error"`
	Message    string `json:"message"`
	ErrorCode  string `json:"errorCode,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("management api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("management api: status %d", e.StatusCode)
}

// IsAPIStatus reports whether err is an *APIError with the given status
func IsAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// ManagementConfig holds configuration for ManagementClient
type ManagementConfig struct {
	BaseURL      string // https://{domain}/api/v2/, also the token audience
	TokenURL     string // https://{domain}/oauth/token
	ClientID     string
	ClientSecret string
	Connection   string // database connection new users are created in
	HTTPTimeout  time.Duration
	Retries      int
	Metrics      *observability.Metrics
}

// ManagementClient calls the Auth0 management API with a client-credentials
// token that is fetched and refreshed transparently.
type ManagementClient struct {
	cfg    ManagementConfig
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewManagementClient creates a new ManagementClient. ctx bounds token
// fetches for the lifetime of the client.
func NewManagementClient(ctx context.Context, cfg ManagementConfig, logger *zap.Logger) *ManagementClient {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := clientcredentials.Config{
		ClientID:       cfg.ClientID,
		ClientSecret:   cfg.ClientSecret,
		TokenURL:       cfg.TokenURL,
		EndpointParams: url.Values{"audience": {cfg.BaseURL}},
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.Retries
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.HTTPClient = cc.Client(ctx)
	client.HTTPClient.Timeout = cfg.HTTPTimeout
	client.CheckRetry = managementRetryPolicy
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = newRetryLogger(logger.Named("management"))

	return &ManagementClient{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

type noRetryKey struct{}

// managementRetryPolicy is the default policy except for requests marked
// with noRetryKey, which are sent exactly once. A POST that timed out may
// still have created the user.
func managementRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if skip, _ := ctx.Value(noRetryKey{}).(bool); skip {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

type apiRole struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type apiUser struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Blocked   bool      `json:"blocked"`
	CreatedAt time.Time `json:"created_at"`
}

func (u apiUser) toModel() models.User {
	return models.User{
		UserID:    u.UserID,
		Email:     u.Email,
		Name:      u.Name,
		Blocked:   u.Blocked,
		Roles:     []string{},
		CreatedAt: u.CreatedAt,
	}
}

func toRoles(in []apiRole) []models.Role {
	out := make([]models.Role, 0, len(in))
	for _, r := range in {
		out = append(out, models.Role{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return out
}

// ListRoles returns the tenant roles
func (c *ManagementClient) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []apiRole
	path := fmt.Sprintf("roles?per_page=%d", maxPageSize)
	if err := c.do(ctx, "list_roles", http.MethodGet, path, nil, &roles); err != nil {
		return nil, err
	}
	return toRoles(roles), nil
}

// ListRoleUsers returns the users holding roleID, following pages until a
// short one comes back. Roles are not populated.
func (c *ManagementClient) ListRoleUsers(ctx context.Context, roleID string) ([]models.User, error) {
	out := make([]models.User, 0)
	for page := 0; ; page++ {
		var users []apiUser
		path := fmt.Sprintf("roles/%s/users?per_page=%d&page=%d", url.PathEscape(roleID), maxPageSize, page)
		if err := c.do(ctx, "list_role_users", http.MethodGet, path, nil, &users); err != nil {
			return nil, err
		}
		for _, u := range users {
			out = append(out, u.toModel())
		}
		if len(users) < maxPageSize {
			return out, nil
		}
	}
}

// GetUserRoles returns the roles assigned to userID
func (c *ManagementClient) GetUserRoles(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []apiRole
	path := fmt.Sprintf("users/%s/roles", url.PathEscape(userID))
	if err := c.do(ctx, "get_user_roles", http.MethodGet, path, nil, &roles); err != nil {
		return nil, err
	}
	return toRoles(roles), nil
}

// CreateUser creates a user in the configured database connection
func (c *ManagementClient) CreateUser(ctx context.Context, input models.CreateUserInput) (*models.User, error) {
	body := map[string]interface{}{
		"email":      input.Email,
		"password":   input.Password,
		"connection": c.cfg.Connection,
	}
	if input.Name != "" {
		body["name"] = input.Name
	}

	var created apiUser
	if err := c.do(ctx, "create_user", http.MethodPost, "users", body, &created); err != nil {
		return nil, err
	}
	u := created.toModel()
	return &u, nil
}

// AssignRoles adds roleIDs to userID
func (c *ManagementClient) AssignRoles(ctx context.Context, userID string, roleIDs []string) error {
	body := map[string]interface{}{"roles": roleIDs}
	path := fmt.Sprintf("users/%s/roles", url.PathEscape(userID))
	return c.do(ctx, "assign_roles", http.MethodPost, path, body, nil)
}

// UpdateUser patches the given fields of userID
func (c *ManagementClient) UpdateUser(ctx context.Context, userID string, input models.UpdateUserInput) (*models.User, error) {
	body := map[string]interface{}{}
	if input.Email != nil {
		body["email"] = *input.Email
	}
	if input.Name != nil {
		body["name"] = *input.Name
	}
	if input.Blocked != nil {
		body["blocked"] = *input.Blocked
	}

	var updated apiUser
	path := fmt.Sprintf("users/%s", url.PathEscape(userID))
	if err := c.do(ctx, "update_user", http.MethodPatch, path, body, &updated); err != nil {
		return nil, err
	}
	u := updated.toModel()
	return &u, nil
}

// DeleteUser removes userID
func (c *ManagementClient) DeleteUser(ctx context.Context, userID string) error {
	path := fmt.Sprintf("users/%s", url.PathEscape(userID))
	return c.do(ctx, "delete_user", http.MethodDelete, path, nil, nil)
}

func (c *ManagementClient) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	if method == http.MethodPost {
		ctx = context.WithValue(ctx, noRetryKey{}, true)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.cfg.Metrics.RecordManagementCall(op, 0)
		c.logger.Error("management api call failed",
			zap.String("operation", op),
			zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.cfg.Metrics.RecordManagementCall(op, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
			apiErr.StatusCode = resp.StatusCode
		}
		c.logger.Warn("management api returned an error",
			zap.String("operation", op),
			zap.Int("status", resp.StatusCode),
			zap.String("error_code", apiErr.ErrorCode))
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
