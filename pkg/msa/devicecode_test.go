package msa_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/msa"
)

func TestRequestDeviceCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/devicecode" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		if r.PostForm.Get("client_id") != "mock_client_id" {
			t.Errorf("Unexpected client_id %q", r.PostForm.Get("client_id"))
		}
		if r.PostForm.Get("scope") != "XboxLive.signin offline_access" {
			t.Errorf("Unexpected scope %q", r.PostForm.Get("scope"))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"device_code":      "mock_device_code",
			"user_code":        "ABCD-EFGH",
			"verification_uri": "https://www.microsoft.com/link",
			"expires_in":       900,
			"interval":         5,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.RequestDeviceCode(context.Background())
	if err != nil {
		t.Fatalf("RequestDeviceCode failed: %v", err)
	}
	if resp.DeviceCode != "mock_device_code" || resp.UserCode != "ABCD-EFGH" {
		t.Errorf("Unexpected device code response: %+v", resp)
	}
	if resp.VerificationURI != "https://www.microsoft.com/link" {
		t.Errorf("Unexpected verification uri %s", resp.VerificationURI)
	}
	if resp.Interval != 5 {
		t.Errorf("Expected interval 5, got %d", resp.Interval)
	}
}

// TestExchangeDeviceCode_PendingThenSuccess drives the single-attempt exchange
// the way a caller polls it.
func TestExchangeDeviceCode_PendingThenSuccess(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "grant_type=urn%3Aietf%3Aparams%3Aoauth%3Agrant-type%3Adevice_code") {
			t.Errorf("Unexpected grant type in %s", body)
		}
		if !strings.Contains(string(body), "device_code=mock_device_code") {
			t.Errorf("Missing device code in %s", body)
		}
		attempts++
		w.Header().Set("Content-Type", "application/json")
		switch attempts {
		case 1:
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"authorization_pending","error_description":"AADSTS70016: pending"}`)
		case 2:
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"slow_down"}`)
		default:
			writeToken(w, "mock_msa_token", "mock_refresh_token")
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	for i := 0; i < 2; i++ {
		err := client.ExchangeDeviceCode(context.Background(), "mock_device_code")
		if !errors.Is(err, autherr.ErrAuthPending) {
			t.Fatalf("attempt %d: expected auth pending, got %v", i+1, err)
		}
	}
	if err := client.ExchangeDeviceCode(context.Background(), "mock_device_code"); err != nil {
		t.Fatalf("ExchangeDeviceCode failed: %v", err)
	}
	if client.MSAToken.AccessToken != "mock_msa_token" || client.MSAToken.RefreshToken != "mock_refresh_token" {
		t.Errorf("Unexpected token %+v", client.MSAToken)
	}
	if client.MSAToken.Expiry.IsZero() {
		t.Error("Expected token expiry to be set")
	}
}

func TestExchangeDeviceCode_Rejected(t *testing.T) {
	for _, code := range []string{"expired_token", "authorization_declined", "bad_verification_code"} {
		t.Run(code, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"`+code+`"}`)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			err := client.ExchangeDeviceCode(context.Background(), "mock_device_code")
			if !errors.Is(err, autherr.ErrInvalidCredentials) {
				t.Fatalf("Expected invalid credentials, got %v", err)
			}
		})
	}
}

func TestAuthenticate_DeviceCode(t *testing.T) {
	var ticket string
	xbox := xboxHandler(t, &ticket)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			writeToken(w, "device_msa_token", "device_refresh")
			return
		}
		xbox(w, r)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Authenticate(context.Background(), msa.Grant{
		Strategy:   msa.StrategyDeviceCode,
		DeviceCode: "mock_device_code",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if ticket != "d=device_msa_token" {
		t.Errorf("Expected prefixed ticket, got %s", ticket)
	}
	if result.RefreshToken != "device_refresh" {
		t.Errorf("Expected refresh token device_refresh, got %s", result.RefreshToken)
	}
	if result.RefreshTokenURL != server.URL+"/token" {
		t.Errorf("Expected refresh token URL %s/token, got %s", server.URL, result.RefreshTokenURL)
	}
}
