package msa

import (
	"fmt"
	"time"

	"github.com/heyztb/go-mcauth/pkg/autherr"
)

// Strategy selects how the Microsoft token is acquired.
type Strategy int

const (
	// StrategyAuto is resolved by the caller from whichever credential is
	// available. Client.Authenticate does not accept it.
	StrategyAuto Strategy = iota
	StrategyDeviceCode
	StrategyCredentials
	StrategyRefreshToken
	StrategyAuthorizationCode
)

func (s Strategy) String() string {
	switch s {
	case StrategyAuto:
		return "auto"
	case StrategyDeviceCode:
		return "device-code"
	case StrategyCredentials:
		return "credentials"
	case StrategyRefreshToken:
		return "refresh-token"
	case StrategyAuthorizationCode:
		return "authorization-code"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Grant is the initial credential fed into the chain. Only the fields used
// by Strategy are read.
type Grant struct {
	Strategy     Strategy
	Username     string
	Password     string
	DeviceCode   string
	RefreshToken string
	// RefreshTokenURL is the endpoint that issued RefreshToken, as reported
	// by Result.RefreshTokenURL. Empty means the live.com token endpoint.
	RefreshTokenURL string
	Code            string
}

// Validate checks that the grant carries what its strategy needs, so that a
// missing credential fails before any network call.
func (g Grant) Validate() error {
	switch g.Strategy {
	case StrategyDeviceCode:
		if g.DeviceCode == "" {
			return fmt.Errorf("%w: no device code set", autherr.ErrInvalidCredentials)
		}
	case StrategyCredentials:
		if g.Username == "" {
			return fmt.Errorf("%w: invalid username", autherr.ErrInvalidCredentials)
		}
		if g.Password == "" {
			return fmt.Errorf("%w: invalid password", autherr.ErrInvalidCredentials)
		}
	case StrategyRefreshToken:
		if g.RefreshToken == "" {
			return fmt.Errorf("%w: no refresh token set", autherr.ErrInvalidCredentials)
		}
	case StrategyAuthorizationCode:
		if g.Code == "" {
			return fmt.Errorf("%w: no authorization code set", autherr.ErrInvalidCredentials)
		}
	default:
		return fmt.Errorf("%w: unknown strategy %s", autherr.ErrInvalidState, g.Strategy)
	}
	return nil
}

// Result is the outcome of a successful chain run.
type Result struct {
	AccessToken string
	// RefreshToken is the newest Microsoft refresh token. Callers that want
	// to skip interactive login next time persist it.
	RefreshToken string
	// RefreshTokenURL is where RefreshToken must be redeemed.
	RefreshTokenURL string
	// Username is the display name reported by the Minecraft login endpoint.
	Username  string
	ExpiresAt time.Time
}
