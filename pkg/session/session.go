// Package session talks to the session server used when a client joins a
// multiplayer server.
package session

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/internal/transport"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/profile"
)

const BaseURL = "https://sessionserver.mojang.com/session/minecraft/"

type Config struct {
	// BaseURL must end with a slash. Defaults to BaseURL.
	BaseURL   string
	Transport *transport.Client
	Logger    *slog.Logger
}

type Service struct {
	baseURL   string
	transport *transport.Client
	logger    *slog.Logger
}

func NewService(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Transport == nil {
		cfg.Transport = transport.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{baseURL: cfg.BaseURL, transport: cfg.Transport, logger: cfg.Logger}
}

type joinRequest struct {
	AccessToken     string `json:"accessToken"`
	SelectedProfile string `json:"selectedProfile"`
	ServerID        string `json:"serverId"`
}

type profileResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Properties []profile.Property `json:"properties"`
}

// Join tells the session server that the owner of accessToken is joining
// the server identified by serverID.
func (s *Service) Join(ctx context.Context, p *profile.GameProfile, accessToken, serverID string) error {
	if p == nil || p.ID() == uuid.Nil {
		return fmt.Errorf("%w: joining requires a profile id", autherr.ErrInvalidState)
	}
	req := joinRequest{
		AccessToken:     accessToken,
		SelectedProfile: p.IDString(),
		ServerID:        serverID,
	}
	if err := s.transport.PostJSON(ctx, s.baseURL+"join", req, nil, nil); err != nil {
		return fmt.Errorf("joining server: %w", err)
	}
	s.logger.Debug("joined server", "profile", p.Name())
	return nil
}

// HasJoined returns the profile of name if it joined serverID, or nil when
// the session server does not know about the join.
func (s *Service) HasJoined(ctx context.Context, name, serverID string) (*profile.GameProfile, error) {
	q := url.Values{}
	q.Set("username", name)
	q.Set("serverId", serverID)

	var resp profileResponse
	if err := s.transport.Get(ctx, s.baseURL+"hasJoined?"+q.Encode(), &resp, nil); err != nil {
		return nil, fmt.Errorf("checking join: %w", err)
	}
	if resp.ID == "" {
		return nil, nil
	}
	p, err := profile.ParseGameProfile(resp.ID, name)
	if err != nil {
		return nil, &autherr.RequestError{URL: s.baseURL + "hasJoined", Message: "invalid profile in response", Err: err}
	}
	p.SetProperties(resp.Properties)
	return p, nil
}

// FillProfileProperties replaces the properties of p with the signed set
// held by the session server. Profiles without an id are left alone.
func (s *Service) FillProfileProperties(ctx context.Context, p *profile.GameProfile) error {
	if p.ID() == uuid.Nil {
		return nil
	}
	endpoint := s.baseURL + "profile/" + p.IDString() + "?unsigned=false"
	var resp profileResponse
	if err := s.transport.Get(ctx, endpoint, &resp, nil); err != nil {
		return fmt.Errorf("looking up properties for %s: %w", p, err)
	}
	if resp.ID == "" && resp.Name == "" {
		return fmt.Errorf("%w: couldn't fetch properties for %s", profile.ErrProfileNotFound, p)
	}
	p.SetProperties(resp.Properties)
	return nil
}

// ServerID computes the hash a client sends to Join and a server checks with
// HasJoined: SHA-1 over the base id, the shared secret and the server's
// encoded public key, printed as a signed hexadecimal number.
func ServerID(base string, sharedSecret, publicKey []byte) string {
	h := sha1.New()
	h.Write(latin1(base))
	h.Write(sharedSecret)
	h.Write(publicKey)
	digest := h.Sum(nil)

	n := new(big.Int).SetBytes(digest)
	if digest[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(digest)*8)))
	}
	return n.Text(16)
}

func latin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			r = '?'
		}
		out = append(out, byte(r))
	}
	return out
}
