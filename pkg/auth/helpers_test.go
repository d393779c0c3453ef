package auth_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/heyztb/go-mcauth/pkg/auth"
	"github.com/heyztb/go-mcauth/pkg/msa"
)

const (
	notchID     = "069a79f444e94726a5befca90e38aaf5"
	clientToken = "test-client-token"
)

// fakeMicrosoft serves every endpoint of the Microsoft login chain.
type fakeMicrosoft struct {
	*httptest.Server

	hits            int32
	pendingAttempts int32
	profileStatus   int
	refreshIssued   string

	// Refresh grants redeemed at the live.com and the device code endpoint.
	liveRefreshes   int32
	deviceRefreshes int32
}

func newFakeMicrosoft(t *testing.T, opts ...func(*fakeMicrosoft)) *fakeMicrosoft {
	f := &fakeMicrosoft{profileStatus: http.StatusOK, refreshIssued: "rotated_refresh"}
	for _, opt := range opts {
		opt(f)
	}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.hits, 1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/devicecode":
			json.NewEncoder(w).Encode(map[string]any{
				"device_code":      "device_123",
				"user_code":        "ABCD-EFGH",
				"verification_uri": "https://www.microsoft.com/link",
				"expires_in":       900,
				"interval":         5,
			})
		case "/token":
			r.ParseForm()
			if r.PostForm.Get("grant_type") == "refresh_token" {
				atomic.AddInt32(&f.deviceRefreshes, 1)
				f.writeToken(w)
				return
			}
			if atomic.AddInt32(&f.pendingAttempts, -1) >= 0 {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"authorization_pending"}`)
				return
			}
			f.writeToken(w)
		case "/oauth20_token.srf":
			r.ParseForm()
			if r.PostForm.Get("refresh_token") == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"invalid_grant","error_description":"revoked"}`)
				return
			}
			if r.PostForm.Get("grant_type") == "refresh_token" {
				atomic.AddInt32(&f.liveRefreshes, 1)
			}
			f.writeToken(w)
		case "/user/authenticate":
			io.WriteString(w, `{"Token":"xbl_token","DisplayClaims":{"xui":[{"uhs":"uhs_123"}]}}`)
		case "/xsts/authorize":
			io.WriteString(w, `{"Token":"xsts_token","DisplayClaims":{"xui":[{"uhs":"uhs_123"}]}}`)
		case "/authentication/login_with_xbox":
			io.WriteString(w, `{"username":"mc_login_name","access_token":"mc_access_token","token_type":"Bearer","expires_in":86400}`)
		case "/minecraft/profile":
			if f.profileStatus != http.StatusOK {
				w.WriteHeader(f.profileStatus)
				io.WriteString(w, `{"error":"NOT_FOUND","errorMessage":"profile not found"}`)
				return
			}
			io.WriteString(w, `{"id":"`+notchID+`","name":"Notch","skins":[],"capes":[]}`)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	return f
}

func (f *fakeMicrosoft) writeToken(w http.ResponseWriter) {
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "msa_access",
		"token_type":    "Bearer",
		"expires_in":    3600,
		"refresh_token": f.refreshIssued,
	})
}

func (f *fakeMicrosoft) requests() int32 {
	return atomic.LoadInt32(&f.hits)
}

func (f *fakeMicrosoft) service(strategy msa.Strategy, fallback bool) *auth.MSAService {
	return auth.NewMSAService(auth.MSAConfig{
		Config: msa.Config{
			AzureApplicationConfig: &msa.AzureApplicationConfig{ClientID: "client_id"},
			Endpoints: &msa.Endpoints{
				MSALoginURL:    f.URL + "/oauth20_authorize.srf",
				MSATokenURL:    f.URL + "/oauth20_token.srf",
				DeviceCodeURL:  f.URL + "/devicecode",
				DeviceTokenURL: f.URL + "/token",
				XBLAuthURL:     f.URL + "/user/authenticate",
				XSTSAuthURL:    f.URL + "/xsts/authorize",
				MCLoginURL:     f.URL + "/authentication/login_with_xbox",
				MCProfileURL:   f.URL + "/minecraft/profile",
			},
		},
		Strategy:        strategy,
		ProfileFallback: fallback,
	})
}
