package auth_test

import (
	"context"
	"testing"

	"github.com/heyztb/go-mcauth/pkg/auth"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/msa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuto(t *testing.T, opts ...func(*fakeMicrosoft)) (*auth.AutoService, *fakeYggdrasil, *fakeMicrosoft) {
	legacy := newFakeYggdrasil(t)
	microsoft := newFakeMicrosoft(t, opts...)
	t.Cleanup(legacy.Close)
	t.Cleanup(microsoft.Close)
	return auth.NewAutoService(legacy.service(), microsoft.service(msa.StrategyAuto, false), nil), legacy, microsoft
}

func TestAutoLogin_LegacySucceeds(t *testing.T) {
	svc, _, microsoft := newAuto(t)
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("secret"))

	require.NoError(t, svc.Login(context.Background()))
	assert.Equal(t, auth.AccountLegacy, svc.AccountType())
	assert.Equal(t, "legacy_access", svc.AccessToken())
	assert.Zero(t, microsoft.requests())
}

func TestAutoLogin_FallsBackOnInvalidCredentials(t *testing.T) {
	svc, legacy, _ := newAuto(t)
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("wrong"))
	require.NoError(t, svc.MSA().SetRefreshToken("stored_refresh"))

	require.NoError(t, svc.Login(context.Background()))
	assert.Equal(t, auth.AccountMicrosoft, svc.AccountType())
	assert.Equal(t, "mc_access_token", svc.AccessToken())
	assert.True(t, svc.LoggedIn())
	assert.Equal(t, "Notch", svc.SelectedProfile().Name())
	assert.NotZero(t, legacy.requests())
}

func TestAutoLogin_FallsBackOnMigratedUser(t *testing.T) {
	svc, _, _ := newAuto(t)
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("migrated"))
	require.NoError(t, svc.MSA().SetRefreshToken("stored_refresh"))

	require.NoError(t, svc.Login(context.Background()))
	assert.Equal(t, auth.AccountMicrosoft, svc.AccountType())
}

func TestAutoLogin_OtherLegacyErrorsPropagate(t *testing.T) {
	svc, _, microsoft := newAuto(t)
	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("broken"))

	err := svc.Login(context.Background())
	assert.ErrorIs(t, err, autherr.ErrRequest)
	assert.NotErrorIs(t, err, autherr.ErrInvalidCredentials)
	assert.Zero(t, microsoft.requests())
	assert.Equal(t, auth.AccountUnknown, svc.AccountType())
	assert.False(t, svc.LoggedIn())
}

func TestAutoLogin_MissingUsernameFallsBack(t *testing.T) {
	// No username is an invalid credential for the legacy service, so the
	// Microsoft service gets its chance with the refresh token.
	svc, legacy, _ := newAuto(t)
	require.NoError(t, svc.MSA().SetRefreshToken("stored_refresh"))

	require.NoError(t, svc.Login(context.Background()))
	assert.Equal(t, auth.AccountMicrosoft, svc.AccountType())
	assert.Zero(t, legacy.requests())
}

func TestAutoService_FrozenAndLogout(t *testing.T) {
	svc, _, _ := newAuto(t)
	assert.ErrorIs(t, svc.Logout(context.Background()), autherr.ErrInvalidState)

	require.NoError(t, svc.SetUsername("notch@example.com"))
	require.NoError(t, svc.SetPassword("secret"))
	require.NoError(t, svc.Login(context.Background()))

	assert.ErrorIs(t, svc.Login(context.Background()), autherr.ErrInvalidState)
	assert.ErrorIs(t, svc.SetUsername("x"), autherr.ErrInvalidState)
	assert.ErrorIs(t, svc.SetPassword("x"), autherr.ErrInvalidState)
	assert.ErrorIs(t, svc.SetAccessToken("x"), autherr.ErrInvalidState)
	assert.Len(t, svc.AvailableProfiles(), 1)
	assert.Len(t, svc.Properties(), 1)

	require.NoError(t, svc.Logout(context.Background()))
	assert.False(t, svc.LoggedIn())
	require.NoError(t, svc.SetUsername("x"))
}
