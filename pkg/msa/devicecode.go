package msa

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"golang.org/x/oauth2"
)

const deviceCodeGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// RequestDeviceCode starts a device code flow. The user visits
// VerificationURI and enters UserCode; the caller then passes DeviceCode to
// ExchangeDeviceCode until it stops returning autherr.ErrAuthPending.
func (ac *Client) RequestDeviceCode(ctx context.Context) (*oauth2.DeviceAuthResponse, error) {
	resp, err := ac.config.DeviceAuth(ac.oauthContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("device code request failed: %w", oauthError(ac.Endpoints.DeviceCodeURL, err))
	}
	if resp.DeviceCode == "" {
		return nil, &autherr.RequestError{URL: ac.Endpoints.DeviceCodeURL, Message: "response is missing the device code"}
	}
	return resp, nil
}

// ExchangeDeviceCode makes a single attempt at redeeming deviceCode. It does
// not poll: while the user has not finished consent it returns an error
// matching autherr.ErrAuthPending.
func (ac *Client) ExchangeDeviceCode(ctx context.Context, deviceCode string) error {
	if deviceCode == "" {
		return fmt.Errorf("%w: no device code set", autherr.ErrInvalidCredentials)
	}
	form := url.Values{
		"grant_type":  {deviceCodeGrantType},
		"client_id":   {ac.config.ClientID},
		"device_code": {deviceCode},
	}
	var resp deviceTokenResponse
	if err := ac.transport.PostForm(ctx, ac.Endpoints.DeviceTokenURL, form, &resp, nil); err != nil {
		return fmt.Errorf("device code exchange: %w", err)
	}
	if resp.AccessToken == "" {
		return &autherr.RequestError{URL: ac.Endpoints.DeviceTokenURL, Message: "response is missing the access token"}
	}

	token := &oauth2.Token{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		RefreshToken: resp.RefreshToken,
	}
	if resp.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	ac.MSAToken = token
	ac.rawTicket = false
	ac.tokenURL = ac.Endpoints.DeviceTokenURL
	return nil
}
