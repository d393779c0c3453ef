package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/profile"
)

// AccountType records which service an AutoService logged in with.
type AccountType int

const (
	AccountUnknown AccountType = iota
	AccountLegacy
	AccountMicrosoft
)

func (t AccountType) String() string {
	switch t {
	case AccountLegacy:
		return "legacy"
	case AccountMicrosoft:
		return "microsoft"
	default:
		return "unknown"
	}
}

// AutoService tries the legacy service first and falls back to the
// Microsoft service when the legacy server rejects the credentials. Any
// other legacy failure is returned as is.
type AutoService struct {
	legacy *LegacyService
	msa    *MSAService
	logger *slog.Logger

	accountType AccountType
	username    string
	password    string
}

func NewAutoService(legacy *LegacyService, msa *MSAService, logger *slog.Logger) *AutoService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoService{legacy: legacy, msa: msa, logger: logger}
}

func (s *AutoService) AccountType() AccountType { return s.accountType }

func (s *AutoService) Legacy() *LegacyService { return s.legacy }

func (s *AutoService) MSA() *MSAService { return s.msa }

// current is the service answering accessors: the one that logged in, or
// the Microsoft service before any login.
func (s *AutoService) current() Service {
	if s.accountType == AccountLegacy {
		return s.legacy
	}
	return s.msa
}

func (s *AutoService) frozen() bool {
	c := s.current()
	return c.LoggedIn() && c.SelectedProfile() != nil
}

func (s *AutoService) Login(ctx context.Context) error {
	if s.current().LoggedIn() {
		return fmt.Errorf("%w: already logged in", autherr.ErrInvalidState)
	}

	err := s.attempt(ctx, s.legacy, AccountLegacy)
	if err == nil || !errors.Is(err, autherr.ErrInvalidCredentials) {
		return err
	}
	s.logger.Debug("legacy login rejected, trying microsoft", "error", err)
	return s.attempt(ctx, s.msa, AccountMicrosoft)
}

func (s *AutoService) attempt(ctx context.Context, svc Service, t AccountType) error {
	s.logger.Debug("attempting login", "account", t)
	if err := svc.SetUsername(s.username); err != nil {
		return err
	}
	// Without a password the Microsoft service falls through to its device
	// code or refresh token.
	if s.password != "" {
		if err := svc.SetPassword(s.password); err != nil {
			return err
		}
	}
	if err := svc.Login(ctx); err != nil {
		return err
	}
	s.accountType = t
	s.logger.Debug("authenticated", "account", t)
	return nil
}

func (s *AutoService) Logout(ctx context.Context) error {
	return s.current().Logout(ctx)
}

func (s *AutoService) LoggedIn() bool      { return s.current().LoggedIn() }
func (s *AutoService) AccessToken() string { return s.current().AccessToken() }

func (s *AutoService) SelectedProfile() *profile.GameProfile {
	return s.current().SelectedProfile()
}

func (s *AutoService) AvailableProfiles() []*profile.GameProfile {
	return s.current().AvailableProfiles()
}

func (s *AutoService) Properties() []profile.Property {
	return s.current().Properties()
}

func (s *AutoService) SetUsername(username string) error {
	if s.frozen() {
		return fmt.Errorf("%w: cannot change username while logged in with a selected profile", autherr.ErrInvalidState)
	}
	s.username = username
	return nil
}

func (s *AutoService) SetPassword(password string) error {
	if s.frozen() {
		return fmt.Errorf("%w: cannot change password while logged in with a selected profile", autherr.ErrInvalidState)
	}
	s.password = password
	return nil
}

func (s *AutoService) SetAccessToken(token string) error {
	return s.current().SetAccessToken(token)
}
