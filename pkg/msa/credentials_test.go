package msa_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/msa"
)

const loginPageTemplate = `<html><head><script type="text/javascript">
var ServerData = {
sFTTag:'<input type="hidden" name="PPFT" id="i0327" value="mock_ppft"/>',
urlPost:'%s/ppsecure/post.srf?contextid=ABC',
};
</script></head><body></body></html>`

// liveLoginHandler imitates the live.com interactive login form.
func liveLoginHandler(t *testing.T, serverURL *string, page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth20_authorize.srf":
			if r.URL.Query().Get("client_id") != msa.MinecraftClientID {
				t.Errorf("Unexpected client_id %q", r.URL.Query().Get("client_id"))
			}
			http.SetCookie(w, &http.Cookie{Name: "MSPOK", Value: "cookie_value"})
			if page == "" {
				page = fmt.Sprintf(loginPageTemplate, *serverURL)
			}
			io.WriteString(w, page)
		case "/ppsecure/post.srf":
			if c, err := r.Cookie("MSPOK"); err != nil || c.Value != "cookie_value" {
				t.Errorf("Expected login cookie, got %v", r.Header.Get("Cookie"))
			}
			r.ParseForm()
			if r.PostForm.Get("PPFT") != "mock_ppft" {
				t.Errorf("Unexpected PPFT %q", r.PostForm.Get("PPFT"))
			}
			if r.PostForm.Get("login") != "user@example.com" || r.PostForm.Get("loginfmt") != "user@example.com" {
				t.Errorf("Unexpected login fields %v", r.PostForm)
			}
			if r.PostForm.Get("passwd") != "hunter2" {
				io.WriteString(w, "<html>Your account or password is incorrect.</html>")
				return
			}
			http.Redirect(w, r, *serverURL+"/oauth20_desktop.srf?code=M.R3_BAY.mock-code&lc=1033", http.StatusFound)
		case "/oauth20_desktop.srf":
			w.WriteHeader(http.StatusOK)
		case "/oauth20_token.srf":
			r.ParseForm()
			if r.PostForm.Get("code") != "M.R3_BAY.mock-code" {
				t.Errorf("Unexpected code %q", r.PostForm.Get("code"))
			}
			if r.PostForm.Get("client_id") != msa.MinecraftClientID {
				t.Errorf("Unexpected client_id %q", r.PostForm.Get("client_id"))
			}
			if r.PostForm.Get("scope") != "service::user.auth.xboxlive.com::MBI_SSL" {
				t.Errorf("Unexpected scope %q", r.PostForm.Get("scope"))
			}
			if r.PostForm.Get("redirect_uri") != "https://login.live.com/oauth20_desktop.srf" {
				t.Errorf("Unexpected redirect_uri %q", r.PostForm.Get("redirect_uri"))
			}
			writeToken(w, "live_msa_token", "live_refresh")
		default:
			xboxHandler(t, nil)(w, r)
		}
	}
}

func TestAuthenticate_Credentials(t *testing.T) {
	var serverURL, ticket string
	login := liveLoginHandler(t, &serverURL, "")
	xbox := xboxHandler(t, &ticket)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user/authenticate" {
			xbox(w, r)
			return
		}
		login(w, r)
	}))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(server.URL)
	result, err := client.Authenticate(context.Background(), msa.Grant{
		Strategy: msa.StrategyCredentials,
		Username: "user@example.com",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ticket != "live_msa_token" {
		t.Errorf("Expected unprefixed ticket, got %s", ticket)
	}
	if result.AccessToken != "mock_mc_token" || result.RefreshToken != "live_refresh" {
		t.Errorf("Unexpected result %+v", result)
	}
}

func TestLoginWithCredentials_WrongPassword(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(liveLoginHandler(t, &serverURL, ""))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(server.URL)
	err := client.LoginWithCredentials(context.Background(), "user@example.com", "wrong")
	if !errors.Is(err, autherr.ErrInvalidCredentials) {
		t.Fatalf("Expected invalid credentials, got %v", err)
	}
}

func TestLoginWithCredentials_UnparsablePage(t *testing.T) {
	var serverURL string
	server := httptest.NewServer(liveLoginHandler(t, &serverURL, "<html>maintenance</html>"))
	defer server.Close()
	serverURL = server.URL

	client := newTestClient(server.URL)
	err := client.LoginWithCredentials(context.Background(), "user@example.com", "hunter2")
	if !errors.Is(err, autherr.ErrServiceUnavailable) {
		t.Fatalf("Expected service unavailable, got %v", err)
	}
}
