// Package auth implements the login state machines for legacy and Microsoft
// accounts.
package auth

import (
	"context"
	"fmt"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/profile"
)

// Service is implemented by LegacyService, MSAService and AutoService. A
// Service is not safe for concurrent use.
type Service interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	LoggedIn() bool
	AccessToken() string
	SelectedProfile() *profile.GameProfile
	AvailableProfiles() []*profile.GameProfile
	Properties() []profile.Property
	SetUsername(username string) error
	SetPassword(password string) error
	SetAccessToken(token string) error
}

var (
	_ Service = (*LegacyService)(nil)
	_ Service = (*MSAService)(nil)
	_ Service = (*AutoService)(nil)
)

// State holds the credentials and the committed identity of one service.
// Once logged in with a selected profile the credentials are frozen.
type State struct {
	username     string
	password     string
	accessToken  string
	refreshToken string
	deviceCode   string

	loggedIn        bool
	selectedProfile *profile.GameProfile
	properties      []profile.Property
	profiles        []*profile.GameProfile
}

func (s *State) frozen() bool {
	return s.loggedIn && s.selectedProfile != nil
}

func (s *State) set(field string, dst *string, v string) error {
	if s.frozen() {
		return fmt.Errorf("%w: cannot change %s while logged in with a selected profile", autherr.ErrInvalidState, field)
	}
	*dst = v
	return nil
}

func (s *State) SetUsername(username string) error {
	return s.set("username", &s.username, username)
}

func (s *State) SetPassword(password string) error {
	return s.set("password", &s.password, password)
}

func (s *State) SetAccessToken(token string) error {
	return s.set("access token", &s.accessToken, token)
}

func (s *State) Username() string    { return s.username }
func (s *State) AccessToken() string { return s.accessToken }
func (s *State) LoggedIn() bool      { return s.loggedIn }

func (s *State) SelectedProfile() *profile.GameProfile {
	return s.selectedProfile
}

func (s *State) AvailableProfiles() []*profile.GameProfile {
	out := make([]*profile.GameProfile, len(s.profiles))
	copy(out, s.profiles)
	return out
}

func (s *State) Properties() []profile.Property {
	out := make([]profile.Property, len(s.properties))
	copy(out, s.properties)
	return out
}

func (s *State) checkLoggedOut() error {
	if s.loggedIn {
		return fmt.Errorf("%w: already logged in", autherr.ErrInvalidState)
	}
	return nil
}

func (s *State) checkLoggedIn() error {
	if !s.loggedIn {
		return fmt.Errorf("%w: not logged in", autherr.ErrInvalidState)
	}
	return nil
}

// install commits a successful login.
func (s *State) install(accessToken string, selected *profile.GameProfile, profiles []*profile.GameProfile, props []profile.Property) {
	s.accessToken = accessToken
	s.selectedProfile = selected
	s.profiles = append([]*profile.GameProfile(nil), profiles...)
	s.properties = append([]profile.Property(nil), props...)
	s.loggedIn = true
}

func (s *State) clear() {
	s.accessToken = ""
	s.selectedProfile = nil
	s.profiles = nil
	s.properties = nil
	s.loggedIn = false
}
