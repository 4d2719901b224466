package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors surfaced by the panel client. Services map these onto
// their own error kinds.
var (
	ErrPanelNotFound = errors.New("panel: resource not found")
	ErrDuplicateUser = errors.New("panel: username already registered")
)

// PanelClient calls the hosting control-plane application API. The panel is
// authoritative for whether a server exists and is suspended; everything
// here is a read or mutation of that remote truth.
type PanelClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewPanelClient creates a panel API client.
func NewPanelClient(baseURL, apiKey string) *PanelClient {
	return &PanelClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Server is the panel's view of one provisioned server. Owner fields are
// populated from the user relationship when the panel includes it.
type Server struct {
	ID            int
	Name          string
	Suspended     bool
	UserID        int
	OwnerUsername string
	OwnerEmail    string
	Node          string
	CreatedAt     time.Time
	Limits        ServerLimits
}

// ServerLimits holds the resource caps of a server. Zero means unlimited.
type ServerLimits struct {
	MemoryMB int `json:"memory"`
	DiskMB   int `json:"disk"`
	CPU      int `json:"cpu"`
}

// User is the panel's view of a hosting account.
type User struct {
	ID          int
	Username    string
	Email       string
	RootAdmin   bool
	ServerCount int
}

// CreateServerRequest describes a server to provision.
type CreateServerRequest struct {
	Name       string
	UserID     int
	EggID      int
	NestID     int
	LocationID int
	Startup    string
	Image      string
	Limits     ServerLimits
}

// CreateUserRequest describes a hosting account to create.
type CreateUserRequest struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// ==================== wire shapes ====================

type serverAttributes struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	Suspended     bool         `json:"suspended"`
	User          int          `json:"user"`
	Node          string       `json:"node"`
	CreatedAt     time.Time    `json:"created_at"`
	Limits        ServerLimits `json:"limits"`
	Relationships struct {
		User struct {
			Attributes userAttributes `json:"attributes"`
		} `json:"user"`
	} `json:"relationships"`
}

type userAttributes struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	RootAdmin bool   `json:"root_admin"`
}

type listMeta struct {
	Pagination struct {
		CurrentPage int `json:"current_page"`
		TotalPages  int `json:"total_pages"`
	} `json:"pagination"`
}

func serverFromAttributes(a serverAttributes) Server {
	return Server{
		ID:            a.ID,
		Name:          a.Name,
		Suspended:     a.Suspended,
		UserID:        a.User,
		OwnerUsername: a.Relationships.User.Attributes.Username,
		OwnerEmail:    a.Relationships.User.Attributes.Email,
		Node:          a.Node,
		CreatedAt:     a.CreatedAt,
		Limits:        a.Limits,
	}
}

// ==================== servers ====================

// ListServers fetches the full remote server list, following pagination.
func (c *PanelClient) ListServers(ctx context.Context) ([]Server, error) {
	var servers []Server

	for page := 1; ; page++ {
		var resp struct {
			Data []struct {
				Attributes serverAttributes `json:"attributes"`
			} `json:"data"`
			Meta listMeta `json:"meta"`
		}
		path := fmt.Sprintf("/api/application/servers?include=user&page=%d", page)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, fmt.Errorf("list servers page %d: %w", page, err)
		}

		for _, entry := range resp.Data {
			servers = append(servers, serverFromAttributes(entry.Attributes))
		}

		if page >= resp.Meta.Pagination.TotalPages {
			break
		}
	}

	return servers, nil
}

// GetServer fetches one server by id.
func (c *PanelClient) GetServer(ctx context.Context, id int) (*Server, error) {
	var resp struct {
		Attributes serverAttributes `json:"attributes"`
	}
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/application/servers/%d?include=user", id), nil, &resp); err != nil {
		return nil, err
	}
	s := serverFromAttributes(resp.Attributes)
	return &s, nil
}

// CreateServer provisions a server with the given limits and deployment
// location.
func (c *PanelClient) CreateServer(ctx context.Context, req CreateServerRequest) (*Server, error) {
	body := map[string]any{
		"name":         req.Name,
		"user":         req.UserID,
		"egg":          req.EggID,
		"nest":         req.NestID,
		"docker_image": req.Image,
		"startup":      req.Startup,
		"environment":  map[string]string{},
		"limits": map[string]int{
			"memory": req.Limits.MemoryMB,
			"disk":   req.Limits.DiskMB,
			"cpu":    req.Limits.CPU,
			"swap":   0,
			"io":     500,
		},
		"feature_limits": map[string]int{
			"databases":   1,
			"backups":     1,
			"allocations": 1,
		},
		"deploy": map[string]any{
			"locations":    []int{req.LocationID},
			"dedicated_ip": false,
			"port_range":   []string{},
		},
	}

	var resp struct {
		Attributes serverAttributes `json:"attributes"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/application/servers", body, &resp); err != nil {
		return nil, err
	}
	s := serverFromAttributes(resp.Attributes)
	return &s, nil
}

// DeleteServer removes a server. A missing server is treated as success:
// the goal state is "does not exist".
func (c *PanelClient) DeleteServer(ctx context.Context, id int) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/application/servers/%d", id), nil, nil)
	if errors.Is(err, ErrPanelNotFound) {
		return nil
	}
	return err
}

// SuspendServer suspends a server. Suspension is idempotent on the panel
// side, so repeating it for an already-suspended server is safe.
func (c *PanelClient) SuspendServer(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/application/servers/%d/suspend", id), nil, nil)
}

// UnsuspendServer lifts a suspension.
func (c *PanelClient) UnsuspendServer(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/application/servers/%d/unsuspend", id), nil, nil)
}

// ==================== users ====================

// CreateUser registers a hosting account. A duplicate username or email is
// reported as ErrDuplicateUser; the panel is the final authority on
// uniqueness.
func (c *PanelClient) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	body := map[string]any{
		"username":   req.Username,
		"email":      req.Email,
		"first_name": req.FirstName,
		"last_name":  req.LastName,
		"password":   req.Password,
	}

	var resp struct {
		Attributes userAttributes `json:"attributes"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/application/users", body, &resp); err != nil {
		return nil, err
	}

	return &User{
		ID:        resp.Attributes.ID,
		Username:  resp.Attributes.Username,
		Email:     resp.Attributes.Email,
		RootAdmin: resp.Attributes.RootAdmin,
	}, nil
}

// DeleteUser removes a hosting account.
func (c *PanelClient) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/application/users/%d", id), nil, nil)
}

// FindUserByUsername looks up an account by exact username. Returns
// (nil, nil) when no account matches.
func (c *PanelClient) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	var resp struct {
		Data []struct {
			Attributes userAttributes `json:"attributes"`
		} `json:"data"`
	}
	path := "/api/application/users?filter%5Busername%5D=" + url.QueryEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}

	for _, entry := range resp.Data {
		if strings.EqualFold(entry.Attributes.Username, username) {
			return &User{
				ID:        entry.Attributes.ID,
				Username:  entry.Attributes.Username,
				Email:     entry.Attributes.Email,
				RootAdmin: entry.Attributes.RootAdmin,
			}, nil
		}
	}
	return nil, nil
}

// GetUser fetches an account with its remaining server count.
func (c *PanelClient) GetUser(ctx context.Context, id int) (*User, error) {
	var resp struct {
		Attributes struct {
			userAttributes
			Relationships struct {
				Servers struct {
					Data []json.RawMessage `json:"data"`
				} `json:"servers"`
			} `json:"relationships"`
		} `json:"attributes"`
	}
	path := fmt.Sprintf("/api/application/users/%d?include=servers", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return &User{
		ID:          resp.Attributes.ID,
		Username:    resp.Attributes.Username,
		Email:       resp.Attributes.Email,
		RootAdmin:   resp.Attributes.RootAdmin,
		ServerCount: len(resp.Attributes.Relationships.Servers.Data),
	}, nil
}

// ==================== templates ====================

// GetEggStartup resolves the startup command of an application template.
func (c *PanelClient) GetEggStartup(ctx context.Context, nestID, eggID int) (string, error) {
	var resp struct {
		Attributes struct {
			Startup     string `json:"startup"`
			DockerImage string `json:"docker_image"`
		} `json:"attributes"`
	}
	path := fmt.Sprintf("/api/application/nests/%d/eggs/%d", nestID, eggID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Attributes.Startup, nil
}

// ==================== transport ====================

func (c *PanelClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrPanelNotFound
	case resp.StatusCode == http.StatusUnprocessableEntity && isUniqueViolation(respBody):
		return ErrDuplicateUser
	case resp.StatusCode >= 400:
		return fmt.Errorf("panel returned status %d: %s", resp.StatusCode, truncate(respBody, 512))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w (body: %s)", err, truncate(respBody, 512))
		}
	}
	return nil
}

// isUniqueViolation checks the panel's validation payload for a uniqueness
// failure on account creation.
func isUniqueViolation(body []byte) bool {
	lower := strings.ToLower(string(body))
	return strings.Contains(lower, "unique")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
