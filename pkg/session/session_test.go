package session_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/profile"
	"github.com/heyztb/go-mcauth/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const notchID = "069a79f444e94726a5befca90e38aaf5"

func TestServerID(t *testing.T) {
	tests := map[string]string{
		"Notch": "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48",
		"jeb_":  "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1",
		"simon": "88e16a1019277b15d58faf0541e11910eb756f6",
	}
	for base, want := range tests {
		t.Run(base, func(t *testing.T) {
			assert.Equal(t, want, session.ServerID(base, nil, nil))
		})
	}
}

func TestServerID_SplitsInputs(t *testing.T) {
	assert.Equal(t, session.ServerID("Notch", nil, nil), session.ServerID("No", []byte("tc"), []byte("h")))
}

func sessionServer(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/join":
			var req map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req["accessToken"] != "good_token" {
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"error":"ForbiddenOperationException","errorMessage":"Invalid token."}`)
				return
			}
			assert.Equal(t, notchID, req["selectedProfile"])
			assert.Equal(t, "server-hash", req["serverId"])
			w.WriteHeader(http.StatusNoContent)
		case "/hasJoined":
			if r.URL.Query().Get("serverId") != "server-hash" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id":   notchID,
				"name": r.URL.Query().Get("username"),
				"properties": []map[string]string{
					{"name": "textures", "value": "payload", "signature": "sig"},
				},
			})
		case "/profile/" + notchID:
			assert.Equal(t, "false", r.URL.Query().Get("unsigned"))
			json.NewEncoder(w).Encode(map[string]any{
				"id":   notchID,
				"name": "Notch",
				"properties": []map[string]string{
					{"name": "textures", "value": "filled", "signature": "sig"},
				},
			})
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
}

func notch(t *testing.T) *profile.GameProfile {
	p, err := profile.ParseGameProfile(notchID, "Notch")
	require.NoError(t, err)
	return p
}

func TestJoin(t *testing.T) {
	server := sessionServer(t)
	defer server.Close()
	svc := session.NewService(session.Config{BaseURL: server.URL})

	require.NoError(t, svc.Join(context.Background(), notch(t), "good_token", "server-hash"))

	err := svc.Join(context.Background(), notch(t), "bad_token", "server-hash")
	assert.ErrorIs(t, err, autherr.ErrInvalidCredentials)

	nameOnly, _ := profile.NewGameProfile(uuid.Nil, "Notch")
	assert.ErrorIs(t, svc.Join(context.Background(), nameOnly, "good_token", "server-hash"), autherr.ErrInvalidState)
}

func TestHasJoined(t *testing.T) {
	server := sessionServer(t)
	defer server.Close()
	svc := session.NewService(session.Config{BaseURL: server.URL + "/"})

	p, err := svc.HasJoined(context.Background(), "Notch", "server-hash")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, notchID, p.IDString())
	prop, ok := p.Property("textures")
	require.True(t, ok)
	assert.Equal(t, "payload", prop.Value)

	p, err = svc.HasJoined(context.Background(), "Notch", "other")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFillProfileProperties(t *testing.T) {
	server := sessionServer(t)
	defer server.Close()
	svc := session.NewService(session.Config{BaseURL: server.URL})

	p := notch(t)
	require.NoError(t, svc.FillProfileProperties(context.Background(), p))
	prop, ok := p.Property("textures")
	require.True(t, ok)
	assert.Equal(t, "filled", prop.Value)
	assert.True(t, prop.HasSignature())

	unknown, _ := profile.ParseGameProfile(uuid.NewString(), "ghost")
	assert.ErrorIs(t, svc.FillProfileProperties(context.Background(), unknown), profile.ErrProfileNotFound)

	nameOnly, _ := profile.NewGameProfile(uuid.Nil, "Notch")
	assert.NoError(t, svc.FillProfileProperties(context.Background(), nameOnly))
}
