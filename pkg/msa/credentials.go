package msa

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"golang.org/x/oauth2"
)

const (
	desktopRedirectURL = "https://login.live.com/oauth20_desktop.srf"
	credentialsScope   = "service::user.auth.xboxlive.com::MBI_SSL"
	maxLoginPageBytes  = 2 * 1024 * 1024
)

var (
	ppftPattern    = regexp.MustCompile(`sFTTag:[ ]?'.*value="(.*)"/>'`)
	urlPostPattern = regexp.MustCompile(`urlPost:[ ]?'([^']+)'`)
	codePattern    = regexp.MustCompile(`[?|&]code=([\w.-]+)`)
)

// LoginWithCredentials signs in through the live.com web login form with a
// username and password and exchanges the resulting authorization code for
// a Microsoft token. It always uses MinecraftClientID.
func (ac *Client) LoginWithCredentials(ctx context.Context, username, password string) error {
	if username == "" {
		return fmt.Errorf("%w: invalid username", autherr.ErrInvalidCredentials)
	}
	if password == "" {
		return fmt.Errorf("%w: invalid password", autherr.ErrInvalidCredentials)
	}

	page, err := ac.fetchLoginPage(ctx)
	if err != nil {
		return err
	}
	code, err := ac.postLoginForm(ctx, page, username, password)
	if err != nil {
		return err
	}

	cfg := &oauth2.Config{
		ClientID:    MinecraftClientID,
		Endpoint:    oauth2.Endpoint{TokenURL: ac.Endpoints.MSATokenURL, AuthStyle: oauth2.AuthStyleInParams},
		RedirectURL: desktopRedirectURL,
	}
	token, err := cfg.Exchange(ac.oauthContext(ctx), code, oauth2.SetAuthURLParam("scope", credentialsScope))
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", oauthError(ac.Endpoints.MSATokenURL, err))
	}
	ac.MSAToken = token
	ac.rawTicket = true
	ac.tokenURL = ac.Endpoints.MSATokenURL
	return nil
}

type loginPage struct {
	cookie  string
	ppft    string
	urlPost string
}

func (ac *Client) credentialsLoginURL() string {
	q := url.Values{}
	q.Set("redirect_uri", desktopRedirectURL)
	q.Set("scope", credentialsScope)
	q.Set("display", "touch")
	q.Set("response_type", "code")
	q.Set("locale", "en")
	q.Set("client_id", MinecraftClientID)
	return ac.Endpoints.MSALoginURL + "?" + q.Encode()
}

// fetchLoginPage scrapes the anti-forgery token, the form target and the
// session cookie from the interactive login page.
func (ac *Client) fetchLoginPage(ctx context.Context) (*loginPage, error) {
	loginURL := ac.credentialsLoginURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return nil, &autherr.RequestError{URL: loginURL, Err: err}
	}
	resp, err := ac.transport.HTTPClient.Do(req)
	if err != nil {
		return nil, &autherr.RequestError{URL: loginURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLoginPageBytes))
	if err != nil {
		return nil, &autherr.RequestError{URL: loginURL, Err: err}
	}

	page := &loginPage{cookie: cookieHeader(resp.Cookies())}
	m := ppftPattern.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: could not parse response of %q", autherr.ErrServiceUnavailable, ac.Endpoints.MSALoginURL)
	}
	page.ppft = string(m[1])
	m = urlPostPattern.FindSubmatch(body)
	if m == nil {
		return nil, fmt.Errorf("%w: could not parse response of %q", autherr.ErrServiceUnavailable, ac.Endpoints.MSALoginURL)
	}
	page.urlPost = string(m[1])

	if page.cookie == "" || page.ppft == "" || page.urlPost == "" {
		return nil, &autherr.RequestError{
			URL:     ac.Endpoints.MSALoginURL,
			Message: "invalid response, missing one or more of cookie, PPFT or urlPost",
		}
	}
	return page, nil
}

// postLoginForm submits the credentials and returns the authorization code
// found in the final redirect target.
func (ac *Client) postLoginForm(ctx context.Context, page *loginPage, username, password string) (string, error) {
	form := url.Values{}
	form.Set("login", username)
	form.Set("loginfmt", username)
	form.Set("passwd", password)
	form.Set("PPFT", page.ppft)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, page.urlPost, strings.NewReader(form.Encode()))
	if err != nil {
		return "", &autherr.RequestError{URL: page.urlPost, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("Cookie", page.cookie)

	resp, err := ac.transport.HTTPClient.Do(req)
	if err != nil {
		return "", &autherr.RequestError{URL: page.urlPost, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxLoginPageBytes))

	final := resp.Request.URL.String()
	if resp.StatusCode != http.StatusOK || final == page.urlPost {
		return "", fmt.Errorf("%w: invalid username and/or password", autherr.ErrInvalidCredentials)
	}

	decoded, err := url.QueryUnescape(final)
	if err != nil {
		decoded = final
	}
	m := codePattern.FindStringSubmatch(decoded)
	if m == nil {
		return "", fmt.Errorf("%w: could not parse response of %q", autherr.ErrServiceUnavailable, page.urlPost)
	}
	return m[1], nil
}

func cookieHeader(cookies []*http.Cookie) string {
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
