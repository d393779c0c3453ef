package msa

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/heyztb/go-mcauth/internal/transport"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	MSALoginURL    = "https://login.live.com/oauth20_authorize.srf"
	MSATokenURL    = "https://login.live.com/oauth20_token.srf"
	DeviceCodeURL  = "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode"
	DeviceTokenURL = "https://login.microsoftonline.com/consumers/oauth2/v2.0/token"
	XBLAuthURL     = "https://user.auth.xboxlive.com/user/authenticate"
	XSTSAuthURL    = "https://xsts.auth.xboxlive.com/xsts/authorize"
	MCLoginURL     = "https://api.minecraftservices.com/authentication/login_with_xbox"
	MCProfileURL   = "https://api.minecraftservices.com/minecraft/profile"
)

// MinecraftClientID is the official Xbox app client id. It skips the OAuth
// consent prompt and lets child accounts sign in. The credentials strategy
// always uses it.
const MinecraftClientID = "00000000402b5328"

var DefaultScopes = []string{"XboxLive.signin", "offline_access"}

type AzureApplicationConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Endpoints struct {
	MSALoginURL    string
	MSATokenURL    string
	DeviceCodeURL  string
	DeviceTokenURL string
	XBLAuthURL     string
	XSTSAuthURL    string
	MCLoginURL     string
	MCProfileURL   string
}

// DefaultEndpoints returns the production endpoint set.
func DefaultEndpoints() *Endpoints {
	return &Endpoints{
		MSALoginURL:    MSALoginURL,
		MSATokenURL:    MSATokenURL,
		DeviceCodeURL:  DeviceCodeURL,
		DeviceTokenURL: DeviceTokenURL,
		XBLAuthURL:     XBLAuthURL,
		XSTSAuthURL:    XSTSAuthURL,
		MCLoginURL:     MCLoginURL,
		MCProfileURL:   MCProfileURL,
	}
}

type Config struct {
	*AzureApplicationConfig
	*Endpoints

	// Scopes requested by the device code and authorization code flows.
	// Defaults to DefaultScopes.
	Scopes []string

	Transport *transport.Client
	Logger    *slog.Logger
}

// Client runs the Microsoft -> Xbox Live -> XSTS -> Minecraft token chain.
// The intermediate tokens of the last run are kept on the client. A Client
// is not safe for concurrent use.
type Client struct {
	*Endpoints
	config    *oauth2.Config
	transport *transport.Client
	logger    *slog.Logger
	verifier  string

	// rawTicket is set when the Microsoft token came from the live.com
	// credentials flow, whose tokens are sent to Xbox Live unprefixed.
	rawTicket bool
	// tokenURL is the endpoint that issued MSAToken. Its refresh token is
	// only redeemable there.
	tokenURL string

	MSAToken      *oauth2.Token
	XBLToken      string
	XBLUserHash   string
	XSTSToken     string
	MCToken       string
	MCTokenExpiry time.Time
	CodeChannel   chan string
}

func NewAuthClient(config Config) *Client {
	if config.Endpoints == nil {
		config.Endpoints = DefaultEndpoints()
	}
	if config.AzureApplicationConfig == nil {
		config.AzureApplicationConfig = &AzureApplicationConfig{ClientID: MinecraftClientID}
	}
	if len(config.Scopes) == 0 {
		config.Scopes = DefaultScopes
	}
	if config.Transport == nil {
		config.Transport = transport.Default()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		Endpoints: config.Endpoints,
		config: &oauth2.Config{
			ClientID:     config.AzureApplicationConfig.ClientID,
			ClientSecret: config.AzureApplicationConfig.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:       config.Endpoints.MSALoginURL,
				TokenURL:      config.Endpoints.MSATokenURL,
				DeviceAuthURL: config.Endpoints.DeviceCodeURL,
				AuthStyle:     oauth2.AuthStyleInParams,
			},
			RedirectURL: config.AzureApplicationConfig.RedirectURL,
			Scopes:      config.Scopes,
		},
		transport:   config.Transport,
		logger:      config.Logger,
		CodeChannel: make(chan string, 1),
	}
}

// ClientID returns the OAuth client id used for device code, refresh and
// authorization code requests.
func (ac *Client) ClientID() string {
	return ac.config.ClientID
}

// Authenticate acquires a Microsoft token with the grant's strategy and
// exchanges it through Xbox Live and XSTS for a Minecraft access token.
// The first failing stage aborts the chain.
func (ac *Client) Authenticate(ctx context.Context, grant Grant) (*Result, error) {
	if err := grant.Validate(); err != nil {
		return nil, err
	}
	ac.reset()

	var err error
	switch grant.Strategy {
	case StrategyDeviceCode:
		err = ac.ExchangeDeviceCode(ctx, grant.DeviceCode)
	case StrategyCredentials:
		err = ac.LoginWithCredentials(ctx, grant.Username, grant.Password)
	case StrategyRefreshToken:
		ac.MSAToken = &oauth2.Token{RefreshToken: grant.RefreshToken}
		ac.tokenURL = grant.RefreshTokenURL
		err = ac.RefreshToken(ctx)
	case StrategyAuthorizationCode:
		err = ac.Exchange(ctx, grant.Code)
	}
	if err != nil {
		return nil, err
	}
	ac.logger.Debug("microsoft token acquired", "strategy", grant.Strategy)

	if _, err := ac.AuthenticateWithXBL(ctx); err != nil {
		return nil, err
	}
	if _, err := ac.AuthenticateWithXSTS(ctx); err != nil {
		return nil, err
	}
	mcResp, err := ac.AuthenticateWithMinecraft(ctx)
	if err != nil {
		return nil, err
	}

	return &Result{
		AccessToken:     ac.MCToken,
		RefreshToken:    ac.MSAToken.RefreshToken,
		RefreshTokenURL: ac.RefreshTokenURL(),
		Username:        mcResp.Username,
		ExpiresAt:       ac.MCTokenExpiry,
	}, nil
}

func (ac *Client) reset() {
	ac.rawTicket = false
	ac.tokenURL = ""
	ac.MSAToken = nil
	ac.XBLToken = ""
	ac.XBLUserHash = ""
	ac.XSTSToken = ""
	ac.MCToken = ""
	ac.MCTokenExpiry = time.Time{}
}

func (ac *Client) AuthCodeURL() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(buf)
	pkceVerifier := oauth2.GenerateVerifier()
	ac.verifier = pkceVerifier
	return ac.config.AuthCodeURL(state, oauth2.S256ChallengeOption(pkceVerifier)), nil
}

// WaitForCode serves the redirect callback on addr until a code arrives or
// ctx ends. The code still has to be passed to Exchange or Authenticate.
func (ac *Client) WaitForCode(ctx context.Context, addr string) (string, error) {
	server := NewCallbackServer(addr, ac.CodeChannel)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	defer server.Stop(context.Background())

	select {
	case code := <-ac.CodeChannel:
		return code, nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization code: %w", ctx.Err())
	}
}

// Exchange trades an authorization code (with the PKCE verifier from
// AuthCodeURL) for a Microsoft token.
func (ac *Client) Exchange(ctx context.Context, code string) error {
	token, err := ac.config.Exchange(ac.oauthContext(ctx), code, oauth2.VerifierOption(ac.verifier))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", oauthError(ac.config.Endpoint.TokenURL, err))
	}
	ac.MSAToken = token
	ac.rawTicket = false
	ac.tokenURL = ac.config.Endpoint.TokenURL
	return nil
}

// RefreshTokenURL is the token endpoint that issued the current refresh
// token: the live.com endpoint for the authorization code and credentials
// flows, the consumers v2.0 endpoint for the device code flow.
func (ac *Client) RefreshTokenURL() string {
	if ac.tokenURL == "" {
		return ac.config.Endpoint.TokenURL
	}
	return ac.tokenURL
}

// RefreshToken redeems the refresh token held in MSAToken at
// RefreshTokenURL. The provider may rotate it; MSAToken always holds the
// newest one afterwards.
func (ac *Client) RefreshToken(ctx context.Context) error {
	if ac.MSAToken == nil || ac.MSAToken.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token set", autherr.ErrInvalidCredentials)
	}
	tokenURL := ac.RefreshTokenURL()
	cfg := *ac.config
	cfg.Endpoint.TokenURL = tokenURL

	stale := &oauth2.Token{RefreshToken: ac.MSAToken.RefreshToken}
	token, err := cfg.TokenSource(ac.oauthContext(ctx), stale).Token()
	if err != nil {
		return fmt.Errorf("refresh token request failed: %w", oauthError(tokenURL, err))
	}
	ac.MSAToken = token
	ac.rawTicket = false
	ac.tokenURL = tokenURL
	return nil
}

func (ac *Client) AuthenticateWithXBL(ctx context.Context) (*XBLAuthResponse, error) {
	if ac.MSAToken == nil || ac.MSAToken.AccessToken == "" {
		return nil, fmt.Errorf("%w: no microsoft access token", autherr.ErrInvalidState)
	}
	ticket := "d=" + ac.MSAToken.AccessToken
	if ac.rawTicket {
		ticket = ac.MSAToken.AccessToken
	}
	request := XBLAuthRequest{
		Properties: XBLProperties{
			AuthMethod: "RPS",
			SiteName:   "user.auth.xboxlive.com",
			RpsTicket:  ticket,
		},
		RelyingParty: "http://auth.xboxlive.com",
		TokenType:    "JWT",
	}
	var xblResp XBLAuthResponse
	if err := ac.transport.PostJSON(ctx, ac.Endpoints.XBLAuthURL, request, &xblResp, nil); err != nil {
		return nil, fmt.Errorf("xbox live authentication: %w", err)
	}
	uhs := xblResp.userHash()
	if xblResp.Token == "" || uhs == "" {
		return nil, &autherr.RequestError{URL: ac.Endpoints.XBLAuthURL, Message: "response is missing the token or user hash"}
	}
	ac.XBLToken = xblResp.Token
	ac.XBLUserHash = uhs
	ac.logger.Debug("xbox live token acquired")
	return &xblResp, nil
}

// AuthenticateWithXSTS exchanges the XBL token for an XSTS token. A non-zero
// XErr is returned as an *autherr.XboxError.
func (ac *Client) AuthenticateWithXSTS(ctx context.Context) (*XSTSAuthResponse, error) {
	request := XSTSAuthRequest{
		Properties: XSTSProperties{
			SandboxId:  "RETAIL",
			UserTokens: []string{ac.XBLToken},
		},
		RelyingParty: "rp://api.minecraftservices.com/",
		TokenType:    "JWT",
	}
	var xstsResp XSTSAuthResponse
	if err := ac.transport.PostJSON(ctx, ac.Endpoints.XSTSAuthURL, request, &xstsResp, nil); err != nil {
		var reqErr *autherr.RequestError
		if errors.As(err, &reqErr) && len(reqErr.Body) > 0 {
			if code := gjson.GetBytes(reqErr.Body, "XErr").Uint(); code != 0 {
				return nil, autherr.NewXboxError(code)
			}
		}
		return nil, fmt.Errorf("xsts authentication: %w", err)
	}
	if xstsResp.XErr != 0 {
		return nil, autherr.NewXboxError(xstsResp.XErr)
	}
	if xstsResp.Token == "" {
		return nil, &autherr.RequestError{URL: ac.Endpoints.XSTSAuthURL, Message: "response is missing the token"}
	}
	ac.XSTSToken = xstsResp.Token
	if uhs := xstsResp.userHash(); uhs != "" {
		ac.XBLUserHash = uhs
	}
	ac.logger.Debug("xsts token acquired")
	return &xstsResp, nil
}

func (ac *Client) AuthenticateWithMinecraft(ctx context.Context) (*MinecraftAuthResponse, error) {
	request := MinecraftAuthRequest{
		IdentityToken: fmt.Sprintf("XBL3.0 x=%s;%s", ac.XBLUserHash, ac.XSTSToken),
	}
	var mcResp MinecraftAuthResponse
	if err := ac.transport.PostJSON(ctx, ac.Endpoints.MCLoginURL, request, &mcResp, nil); err != nil {
		return nil, fmt.Errorf("minecraft authentication: %w", err)
	}
	if mcResp.AccessToken == "" {
		return nil, &autherr.RequestError{URL: ac.Endpoints.MCLoginURL, Message: "invalid response received"}
	}
	ac.MCToken = mcResp.AccessToken
	ac.MCTokenExpiry = tokenExpiry(mcResp.AccessToken, mcResp.ExpiresIn, time.Now())
	ac.logger.Debug("minecraft token acquired", "expires", ac.MCTokenExpiry)
	return &mcResp, nil
}

// GetProfile fetches the profile owned by accessToken.
func (ac *Client) GetProfile(ctx context.Context, accessToken string) (*MinecraftProfile, error) {
	headers := map[string]string{"Authorization": "Bearer " + accessToken}
	var profile MinecraftProfile
	if err := ac.transport.Get(ctx, ac.Endpoints.MCProfileURL, &profile, headers); err != nil {
		return nil, fmt.Errorf("profile fetch failed: %w", err)
	}
	if profile.ID == "" && profile.Name == "" {
		return nil, &autherr.RequestError{URL: ac.Endpoints.MCProfileURL, Message: "profile response has neither id nor name"}
	}
	return &profile, nil
}

func (ac *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, ac.transport.HTTPClient)
}

// oauthError maps errors from golang.org/x/oauth2 onto the taxonomy.
func oauthError(endpoint string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return transport.Classify(endpoint, status, rErr.Body)
	}
	return &autherr.RequestError{URL: endpoint, Err: err}
}

// tokenExpiry prefers expires_in and falls back to the exp claim of the
// Minecraft access token, which is a JWT. The claim is read without
// verification; it only informs the caller when to log in again.
func tokenExpiry(accessToken string, expiresIn int, now time.Time) time.Time {
	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
