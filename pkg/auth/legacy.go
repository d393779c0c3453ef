package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/internal/transport"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/profile"
)

const (
	LegacyBaseURL     = "https://authserver.mojang.com/"
	MigrationCheckURL = "https://api.minecraftservices.com/rollout/v1/msamigration"
)

type LegacyConfig struct {
	// BaseURL of the authenticate/refresh/invalidate endpoints.
	BaseURL string
	// MigrationURL is the Microsoft migration rollout endpoint.
	MigrationURL string
	// ClientToken must be echoed by every authenticate and refresh
	// response. A random UUID is used when empty.
	ClientToken string

	Transport *transport.Client
	Logger    *slog.Logger
}

// LegacyService logs in against the password based authentication server.
type LegacyService struct {
	State

	baseURL      string
	migrationURL string
	clientToken  string
	id           string
	transport    *transport.Client
	logger       *slog.Logger
}

func NewLegacyService(cfg LegacyConfig) *LegacyService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = LegacyBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.MigrationURL == "" {
		cfg.MigrationURL = MigrationCheckURL
	}
	if cfg.ClientToken == "" {
		cfg.ClientToken = uuid.NewString()
	}
	if cfg.Transport == nil {
		cfg.Transport = transport.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LegacyService{
		baseURL:      cfg.BaseURL,
		migrationURL: cfg.MigrationURL,
		clientToken:  cfg.ClientToken,
		transport:    cfg.Transport,
		logger:       cfg.Logger,
	}
}

func (s *LegacyService) ClientToken() string { return s.clientToken }

// ID is the account id reported by the last login, or the username when the
// server did not report one.
func (s *LegacyService) ID() string { return s.id }

type agent struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}

type authenticateRequest struct {
	Agent       agent  `json:"agent"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	ClientToken string `json:"clientToken"`
	RequestUser bool   `json:"requestUser"`
}

type refreshRequest struct {
	ClientToken     string               `json:"clientToken"`
	AccessToken     string               `json:"accessToken"`
	SelectedProfile *profile.GameProfile `json:"selectedProfile,omitempty"`
	RequestUser     bool                 `json:"requestUser"`
}

type invalidateRequest struct {
	ClientToken string `json:"clientToken"`
	AccessToken string `json:"accessToken"`
}

type legacyUser struct {
	ID         string             `json:"id"`
	Properties []profile.Property `json:"properties"`
}

type legacyResponse struct {
	AccessToken       string                 `json:"accessToken"`
	ClientToken       string                 `json:"clientToken"`
	SelectedProfile   *profile.GameProfile   `json:"selectedProfile"`
	AvailableProfiles []*profile.GameProfile `json:"availableProfiles"`
	User              *legacyUser            `json:"user"`
}

// Login refreshes the access token when one is set and authenticates with
// the password otherwise.
func (s *LegacyService) Login(ctx context.Context) error {
	if err := s.checkLoggedOut(); err != nil {
		return err
	}
	if s.username == "" {
		return fmt.Errorf("%w: invalid username", autherr.ErrInvalidCredentials)
	}
	if s.accessToken == "" && s.password == "" {
		return fmt.Errorf("%w: invalid password or access token", autherr.ErrInvalidCredentials)
	}

	var (
		endpoint string
		body     any
	)
	if s.accessToken != "" {
		endpoint = s.baseURL + "refresh"
		body = refreshRequest{ClientToken: s.clientToken, AccessToken: s.accessToken, RequestUser: true}
	} else {
		endpoint = s.baseURL + "authenticate"
		body = authenticateRequest{
			Agent:       agent{Name: "Minecraft", Version: 1},
			Username:    s.username,
			Password:    s.password,
			ClientToken: s.clientToken,
			RequestUser: true,
		}
	}

	resp, err := s.call(ctx, endpoint, body)
	if err != nil {
		return err
	}

	s.id = s.username
	var props []profile.Property
	if resp.User != nil {
		if resp.User.ID != "" {
			s.id = resp.User.ID
		}
		props = resp.User.Properties
	}
	s.install(resp.AccessToken, resp.SelectedProfile, resp.AvailableProfiles, props)
	s.logger.Debug("legacy login succeeded", "username", s.username, "profiles", len(resp.AvailableProfiles))
	return nil
}

// SelectProfile binds one of the available profiles to the session.
func (s *LegacyService) SelectProfile(ctx context.Context, p *profile.GameProfile) error {
	if err := s.checkLoggedIn(); err != nil {
		return err
	}
	if s.selectedProfile != nil {
		return fmt.Errorf("%w: a profile is already selected", autherr.ErrInvalidState)
	}
	if !s.available(p) {
		return fmt.Errorf("%w: profile %v is not available", autherr.ErrInvalidState, p)
	}

	resp, err := s.call(ctx, s.baseURL+"refresh", refreshRequest{
		ClientToken:     s.clientToken,
		AccessToken:     s.accessToken,
		SelectedProfile: p,
		RequestUser:     true,
	})
	if err != nil {
		return err
	}
	s.accessToken = resp.AccessToken
	s.selectedProfile = resp.SelectedProfile
	return nil
}

// Logout invalidates the access token server side before clearing the
// session. A failed invalidate leaves the session intact.
func (s *LegacyService) Logout(ctx context.Context) error {
	if err := s.checkLoggedIn(); err != nil {
		return err
	}
	req := invalidateRequest{ClientToken: s.clientToken, AccessToken: s.accessToken}
	if err := s.transport.PostJSON(ctx, s.baseURL+"invalidate", req, nil, nil); err != nil {
		return fmt.Errorf("invalidating token: %w", err)
	}
	s.clear()
	s.id = ""
	return nil
}

// MigrationCheck reports whether the logged in account may migrate to a
// Microsoft account.
func (s *LegacyService) MigrationCheck(ctx context.Context) (bool, error) {
	if err := s.checkLoggedIn(); err != nil {
		return false, err
	}
	var resp struct {
		Feature string `json:"feature"`
		Rollout bool   `json:"rollout"`
	}
	headers := map[string]string{"Authorization": "Bearer " + s.accessToken}
	if err := s.transport.Get(ctx, s.migrationURL, &resp, headers); err != nil {
		return false, fmt.Errorf("migration check: %w", err)
	}
	return resp.Rollout, nil
}

func (s *LegacyService) call(ctx context.Context, endpoint string, body any) (*legacyResponse, error) {
	var resp legacyResponse
	if err := s.transport.PostJSON(ctx, endpoint, body, &resp, nil); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" && resp.ClientToken == "" {
		return nil, &autherr.RequestError{URL: endpoint, Message: "server returned invalid response"}
	}
	if resp.ClientToken != s.clientToken {
		return nil, &autherr.RequestError{URL: endpoint, Message: "server responded with incorrect client token"}
	}
	return &resp, nil
}

func (s *LegacyService) available(p *profile.GameProfile) bool {
	if p == nil {
		return false
	}
	for _, candidate := range s.profiles {
		if candidate.Equal(p) {
			return true
		}
	}
	return false
}
