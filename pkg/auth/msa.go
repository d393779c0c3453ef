package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/msa"
	"github.com/heyztb/go-mcauth/pkg/profile"
	"golang.org/x/oauth2"
)

type MSAConfig struct {
	msa.Config

	// Strategy is fixed for every login. msa.StrategyAuto picks the refresh
	// token, then the device code, then username and password.
	Strategy msa.Strategy

	// ProfileFallback lets a login succeed when the profile fetch fails,
	// using the username reported by the Minecraft login as the profile
	// name. The failure is logged at WARN.
	ProfileFallback bool
}

// MSAService logs in with a Microsoft account.
type MSAService struct {
	State

	client   *msa.Client
	strategy msa.Strategy
	fallback bool
	logger   *slog.Logger

	authCode        string
	refreshTokenURL string
	expiresAt       time.Time
}

func NewMSAService(cfg MSAConfig) *MSAService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MSAService{
		client:   msa.NewAuthClient(cfg.Config),
		strategy: cfg.Strategy,
		fallback: cfg.ProfileFallback,
		logger:   cfg.Logger,
	}
}

func (s *MSAService) Strategy() msa.Strategy { return s.strategy }

func (s *MSAService) ClientID() string { return s.client.ClientID() }

// RefreshToken is the newest Microsoft refresh token. It rotates on every
// login; persist it to skip interactive login next time.
func (s *MSAService) RefreshToken() string { return s.refreshToken }

func (s *MSAService) DeviceCode() string { return s.deviceCode }

// ExpiresAt is when the current access token stops being accepted, or the
// zero time when unknown.
func (s *MSAService) ExpiresAt() time.Time { return s.expiresAt }

// RefreshTokenURL is the endpoint that issued RefreshToken. Persist it with
// the token; device code tokens are not accepted by the live.com endpoint.
func (s *MSAService) RefreshTokenURL() string { return s.refreshTokenURL }

// SetRefreshToken also forgets the endpoint of the previous token. Call
// SetRefreshTokenURL afterwards for a token not issued by live.com.
func (s *MSAService) SetRefreshToken(token string) error {
	if err := s.set("refresh token", &s.refreshToken, token); err != nil {
		return err
	}
	s.refreshTokenURL = ""
	return nil
}

func (s *MSAService) SetRefreshTokenURL(tokenURL string) error {
	return s.set("refresh token URL", &s.refreshTokenURL, tokenURL)
}

func (s *MSAService) SetDeviceCode(code string) error {
	return s.set("device code", &s.deviceCode, code)
}

func (s *MSAService) SetAuthorizationCode(code string) error {
	return s.set("authorization code", &s.authCode, code)
}

// RequestDeviceCode starts a device code login and remembers the device
// code for the next Login. Show UserCode and VerificationURI to the user.
func (s *MSAService) RequestDeviceCode(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	if err := s.checkLoggedOut(); err != nil {
		return nil, err
	}
	resp, err := s.client.RequestDeviceCode(ctx)
	if err != nil {
		return nil, err
	}
	s.deviceCode = resp.DeviceCode
	return resp, nil
}

// AuthCodeURL starts an authorization code login. Send the user to the URL,
// then pass the code delivered to the redirect URL to SetAuthorizationCode.
func (s *MSAService) AuthCodeURL() (string, error) {
	if err := s.checkLoggedOut(); err != nil {
		return "", err
	}
	return s.client.AuthCodeURL()
}

// WaitForCode serves the redirect callback on addr and stores the code it
// receives.
func (s *MSAService) WaitForCode(ctx context.Context, addr string) error {
	code, err := s.client.WaitForCode(ctx, addr)
	if err != nil {
		return err
	}
	return s.SetAuthorizationCode(code)
}

// Login runs the token chain and fetches the profile. With a device code
// it returns an error matching autherr.ErrAuthPending until the user has
// finished consent; call it again after the polling interval.
func (s *MSAService) Login(ctx context.Context) error {
	if err := s.checkLoggedOut(); err != nil {
		return err
	}
	grant, err := s.grant()
	if err != nil {
		return err
	}

	result, err := s.client.Authenticate(ctx, grant)
	if err != nil {
		return err
	}

	selected, err := s.resolveProfile(ctx, result)
	if err != nil {
		return err
	}

	if result.RefreshToken != "" {
		s.refreshToken = result.RefreshToken
		s.refreshTokenURL = result.RefreshTokenURL
	}
	switch grant.Strategy {
	case msa.StrategyDeviceCode:
		s.deviceCode = ""
	case msa.StrategyAuthorizationCode:
		s.authCode = ""
	}
	s.expiresAt = result.ExpiresAt
	s.install(result.AccessToken, selected, []*profile.GameProfile{selected}, nil)
	s.logger.Debug("microsoft login succeeded", "strategy", grant.Strategy, "profile", selected.Name())
	return nil
}

func (s *MSAService) Logout(ctx context.Context) error {
	if err := s.checkLoggedIn(); err != nil {
		return err
	}
	s.clear()
	s.expiresAt = time.Time{}
	return nil
}

// grant picks the credential for this login. A missing credential is
// reported here, before any request is made.
func (s *MSAService) grant() (msa.Grant, error) {
	g := msa.Grant{
		Strategy:        s.strategy,
		Username:        s.username,
		Password:        s.password,
		DeviceCode:      s.deviceCode,
		RefreshToken:    s.refreshToken,
		RefreshTokenURL: s.refreshTokenURL,
		Code:            s.authCode,
	}
	if g.Strategy == msa.StrategyAuto {
		switch {
		case s.refreshToken != "":
			g.Strategy = msa.StrategyRefreshToken
		case s.deviceCode != "":
			g.Strategy = msa.StrategyDeviceCode
		case s.authCode != "":
			g.Strategy = msa.StrategyAuthorizationCode
		case s.username != "" || s.password != "":
			g.Strategy = msa.StrategyCredentials
		default:
			return g, fmt.Errorf("%w: no refresh token, device code or password set", autherr.ErrInvalidCredentials)
		}
	}
	return g, g.Validate()
}

func (s *MSAService) resolveProfile(ctx context.Context, result *msa.Result) (*profile.GameProfile, error) {
	mp, err := s.client.GetProfile(ctx, result.AccessToken)
	if err == nil {
		p, perr := profile.ParseGameProfile(mp.ID, mp.Name)
		if perr != nil {
			return nil, &autherr.RequestError{URL: s.client.MCProfileURL, Message: "invalid profile in response", Err: perr}
		}
		return p, nil
	}
	if !s.fallback || result.Username == "" {
		return nil, err
	}

	s.logger.Warn("profile fetch failed, falling back to login username",
		"username", result.Username, "error", err)
	p, perr := profile.NewGameProfile(uuid.Nil, result.Username)
	if perr != nil {
		return nil, errors.Join(err, perr)
	}
	return p, nil
}
