package auth_test

import (
	"context"
	"testing"

	"github.com/heyztb/go-mcauth/pkg/auth"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_SettersBeforeLogin(t *testing.T) {
	var s auth.State
	require.NoError(t, s.SetUsername("a"))
	require.NoError(t, s.SetPassword("b"))
	require.NoError(t, s.SetAccessToken("c"))
	assert.Equal(t, "a", s.Username())
	assert.Equal(t, "c", s.AccessToken())
	assert.False(t, s.LoggedIn())
	assert.Nil(t, s.SelectedProfile())
	assert.Empty(t, s.AvailableProfiles())
	assert.Empty(t, s.Properties())
}

func TestState_SettersFrozenWithSelectedProfile(t *testing.T) {
	f := newFakeYggdrasil(t)
	defer f.Close()

	svc := f.service()
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("secret"))
	require.NoError(t, svc.Login(context.Background()))
	require.NotNil(t, svc.SelectedProfile())

	setters := map[string]func(string) error{
		"username":     svc.SetUsername,
		"password":     svc.SetPassword,
		"access token": svc.SetAccessToken,
	}
	for name, set := range setters {
		err := set("changed")
		assert.ErrorIs(t, err, autherr.ErrInvalidState, name)
		assert.ErrorContains(t, err, name)
	}
	assert.Equal(t, "notch@example.com", svc.Username())
	assert.Equal(t, "legacy_access", svc.AccessToken())
}

func TestState_ReturnedSlicesAreCopies(t *testing.T) {
	f := newFakeYggdrasil(t)
	defer f.Close()

	svc := f.service()
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("secret"))
	require.NoError(t, svc.Login(context.Background()))

	profiles := svc.AvailableProfiles()
	profiles[0] = nil
	assert.NotNil(t, svc.AvailableProfiles()[0])

	props := svc.Properties()
	props[0].Value = "changed"
	assert.Equal(t, "en", svc.Properties()[0].Value)
}
