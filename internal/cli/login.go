package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/heyztb/go-mcauth/pkg/auth"
	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/heyztb/go-mcauth/pkg/msa"
	"github.com/spf13/cobra"
)

const (
	defaultPollInterval = 5 * time.Second
	slowDownIncrement   = 5 * time.Second
	callbackTimeout     = 5 * time.Minute
)

var (
	loginMode         string
	loginStrategy     string
	loginUsername     string
	loginPassword     string
	loginAccessToken  string
	loginRefreshToken string
	loginRefreshURL   string
	loginShowTokens   bool
	loginLogout       bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the selected profile and tokens",
	Long: `Log in with a legacy (Yggdrasil) or Microsoft account.

Modes:
  legacy  username and password, or a previous access token
  msa     Microsoft login using --strategy
  auto    try legacy first and fall back to Microsoft when the
          credentials are rejected (for example a migrated account)

Strategies for msa:
  auto                 refresh token, then username/password, then device code
  device-code          show a code to enter at microsoft.com/link
  credentials          username and password through the live.com login form
  refresh-token        a refresh token from an earlier login
  authorization-code   browser login redirected to MCAUTH_CALLBACK_ADDR`,
	Example: `  mcauth login --mode msa --strategy device-code
  MCAUTH_REFRESH_TOKEN=M.C1_BAY... mcauth login --mode msa
  mcauth login --mode legacy -u steve@example.com -p hunter2`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginMode, "mode", "auto", "Account type: legacy, msa or auto")
	loginCmd.Flags().StringVar(&loginStrategy, "strategy", "auto", "Microsoft token strategy")
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Account username or email (default $MCAUTH_USERNAME)")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (default $MCAUTH_PASSWORD)")
	loginCmd.Flags().StringVar(&loginAccessToken, "access-token", "", "Legacy access token to refresh")
	loginCmd.Flags().StringVar(&loginRefreshToken, "refresh-token", "", "Microsoft refresh token (default $MCAUTH_REFRESH_TOKEN)")
	loginCmd.Flags().StringVar(&loginRefreshURL, "refresh-token-url", "", "Endpoint that issued the refresh token (default $MCAUTH_REFRESH_TOKEN_URL)")
	loginCmd.Flags().BoolVar(&loginShowTokens, "show-tokens", false, "Print tokens unmasked")
	loginCmd.Flags().BoolVar(&loginLogout, "logout", false, "Log out again after printing, invalidating legacy tokens")
	rootCmd.AddCommand(loginCmd)
}

// parseStrategy accepts the names printed by msa.Strategy.String.
func parseStrategy(name string) (msa.Strategy, error) {
	for _, s := range []msa.Strategy{
		msa.StrategyAuto,
		msa.StrategyDeviceCode,
		msa.StrategyCredentials,
		msa.StrategyRefreshToken,
		msa.StrategyAuthorizationCode,
	} {
		if strings.EqualFold(name, s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

func newLegacyService() *auth.LegacyService {
	return auth.NewLegacyService(auth.LegacyConfig{
		ClientToken: cfg.ClientToken,
		Transport:   client,
		Logger:      logger,
	})
}

func newMSAService(strategy msa.Strategy) *auth.MSAService {
	return auth.NewMSAService(auth.MSAConfig{
		Config: msa.Config{
			AzureApplicationConfig: &msa.AzureApplicationConfig{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  cfg.RedirectURL,
			},
			Transport: client,
			Logger:    logger,
		},
		Strategy:        strategy,
		ProfileFallback: cfg.ProfileFallback,
	})
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	strategy, err := parseStrategy(loginStrategy)
	if err != nil {
		return err
	}

	username := firstSet(loginUsername, cfg.Username)
	password := firstSet(loginPassword, cfg.Password)
	refreshToken := firstSet(loginRefreshToken, cfg.RefreshToken)
	refreshURL := firstSet(loginRefreshURL, cfg.RefreshTokenURL)

	var (
		svc   auth.Service
		msaSv *auth.MSAService
	)
	switch strings.ToLower(loginMode) {
	case "legacy":
		legacy := newLegacyService()
		if loginAccessToken != "" {
			if err := legacy.SetAccessToken(loginAccessToken); err != nil {
				return err
			}
		}
		svc = legacy
	case "msa":
		msaSv = newMSAService(strategy)
		svc = msaSv
	case "auto":
		msaSv = newMSAService(strategy)
		svc = auth.NewAutoService(newLegacyService(), msaSv, logger)
	default:
		return fmt.Errorf("unknown mode %q, want legacy, msa or auto", loginMode)
	}

	if username != "" {
		if err := svc.SetUsername(username); err != nil {
			return err
		}
	}
	if password != "" {
		if err := svc.SetPassword(password); err != nil {
			return err
		}
	}
	if msaSv != nil && refreshToken != "" {
		if err := msaSv.SetRefreshToken(refreshToken); err != nil {
			return err
		}
		if err := msaSv.SetRefreshTokenURL(refreshURL); err != nil {
			return err
		}
	}

	if msaSv != nil {
		err = loginMicrosoft(ctx, svc, msaSv, strategy, username != "" && password != "", refreshToken != "")
	} else {
		err = svc.Login(ctx)
	}
	if err != nil {
		return describeLoginError(err)
	}

	// Interactive Microsoft flows bypass the auto service.
	if msaSv != nil && msaSv.LoggedIn() {
		svc = msaSv
	}
	out := newLoginOutput(svc)
	if legacy := legacyOf(svc); legacy != nil {
		eligible, err := legacy.MigrationCheck(ctx)
		if err != nil {
			logger.Debug("migration check failed", "error", err)
		} else {
			out.MigrationEligible = &eligible
		}
	}

	if jsonOutput {
		err = printJSON(out)
	} else {
		out.print(loginShowTokens)
	}
	if err != nil || !loginLogout {
		return err
	}

	if err := svc.Logout(ctx); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	if !jsonOutput {
		dimColor.Fprintln(stdout, "  Logged out")
	}
	return nil
}

// legacyOf returns the legacy service behind svc when it holds the session.
func legacyOf(svc auth.Service) *auth.LegacyService {
	switch s := svc.(type) {
	case *auth.LegacyService:
		return s
	case *auth.AutoService:
		if s.AccountType() == auth.AccountLegacy {
			return s.Legacy()
		}
	}
	return nil
}

// loginMicrosoft runs the interactive part of a Microsoft login. svc is
// either msaSv itself or an auto service wrapping it.
func loginMicrosoft(ctx context.Context, svc auth.Service, msaSv *auth.MSAService, strategy msa.Strategy, hasPassword, hasRefresh bool) error {
	switch {
	case strategy == msa.StrategyAuthorizationCode:
		return loginWithBrowser(ctx, msaSv)
	case strategy == msa.StrategyDeviceCode,
		strategy == msa.StrategyAuto && !hasPassword && !hasRefresh:
		return loginWithDeviceCode(ctx, msaSv)
	default:
		return svc.Login(ctx)
	}
}

func loginWithDeviceCode(ctx context.Context, svc *auth.MSAService) error {
	resp, err := svc.RequestDeviceCode(ctx)
	if err != nil {
		return err
	}

	printHeader("Microsoft device login")
	printField("Open", resp.VerificationURI)
	printField("Enter code", successColor.Sprint(resp.UserCode))
	dimColor.Fprintln(stdout, "  Waiting for you to finish signing in...")

	if !resp.Expiry.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, resp.Expiry)
		defer cancel()
	}
	err = pollLogin(ctx, svc, time.Duration(resp.Interval)*time.Second)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: device code expired before sign-in finished", autherr.ErrInvalidCredentials)
	}
	return err
}

func loginWithBrowser(ctx context.Context, svc *auth.MSAService) error {
	authURL, err := svc.AuthCodeURL()
	if err != nil {
		return err
	}

	printHeader("Microsoft browser login")
	printField("Open", authURL)
	dimColor.Fprintf(stdout, "  Waiting for the redirect on %s...\n", cfg.CallbackAddr)

	waitCtx, cancel := context.WithTimeout(ctx, callbackTimeout)
	defer cancel()
	if err := svc.WaitForCode(waitCtx, cfg.CallbackAddr); err != nil {
		return err
	}
	return svc.Login(ctx)
}

type loginer interface {
	Login(ctx context.Context) error
}

// pollLogin calls Login until it stops reporting a pending authorization.
// A slow_down answer widens the interval.
func pollLogin(ctx context.Context, svc loginer, interval time.Duration) error {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	for {
		err := svc.Login(ctx)
		if !errors.Is(err, autherr.ErrAuthPending) {
			return err
		}
		var reqErr *autherr.RequestError
		if errors.As(err, &reqErr) && reqErr.Code == "slow_down" {
			interval += slowDownIncrement
		}
		logger.Debug("authorization pending", "retry_in", interval)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// describeLoginError adds a hint for failures the user can act on.
func describeLoginError(err error) error {
	var xerr *autherr.XboxError
	switch {
	case errors.Is(err, autherr.ErrUserMigrated):
		return fmt.Errorf("%w (log in with --mode msa)", err)
	case errors.As(err, &xerr) && xerr.Reason == autherr.XboxNoAccount:
		return fmt.Errorf("%w (sign in once at xbox.com to create a profile)", err)
	default:
		return err
	}
}

func firstSet(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

type loginOutput struct {
	Account      string     `json:"account"`
	ProfileName  string     `json:"profile_name,omitempty"`
	ProfileID    string     `json:"profile_id,omitempty"`
	Profiles     []string   `json:"available_profiles,omitempty"`
	AccessToken  string     `json:"access_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	RefreshURL   string     `json:"refresh_token_url,omitempty"`
	ClientToken  string     `json:"client_token,omitempty"`

	MigrationEligible *bool `json:"migration_eligible,omitempty"`
}

func newLoginOutput(svc auth.Service) loginOutput {
	out := loginOutput{AccessToken: svc.AccessToken()}

	if p := svc.SelectedProfile(); p != nil {
		out.ProfileName = p.Name()
		out.ProfileID = profileID(p)
	}
	for _, p := range svc.AvailableProfiles() {
		out.Profiles = append(out.Profiles, p.Name())
	}

	switch s := svc.(type) {
	case *auth.MSAService:
		out.Account = auth.AccountMicrosoft.String()
		out.RefreshToken = s.RefreshToken()
		out.RefreshURL = s.RefreshTokenURL()
		if exp := s.ExpiresAt(); !exp.IsZero() {
			out.ExpiresAt = &exp
		}
	case *auth.LegacyService:
		out.Account = auth.AccountLegacy.String()
		out.ClientToken = s.ClientToken()
	case *auth.AutoService:
		out.Account = s.AccountType().String()
		if s.AccountType() == auth.AccountMicrosoft {
			out.RefreshToken = s.MSA().RefreshToken()
			out.RefreshURL = s.MSA().RefreshTokenURL()
			if exp := s.MSA().ExpiresAt(); !exp.IsZero() {
				out.ExpiresAt = &exp
			}
		} else {
			out.ClientToken = s.Legacy().ClientToken()
		}
	}
	return out
}

func (o loginOutput) print(showTokens bool) {
	secret := maskToken
	if showTokens {
		secret = func(s string) string { return s }
	}

	printHeader("Logged in")
	printField("Account", o.Account)
	if o.ProfileName != "" {
		printField("Profile", o.ProfileName)
		if o.ProfileID != "" {
			printField("UUID", o.ProfileID)
		}
	} else {
		warnColor.Fprintln(stdout, "  No profile selected")
		if len(o.Profiles) > 0 {
			printField("Available", strings.Join(o.Profiles, ", "))
		}
	}
	printField("Access token", secret(o.AccessToken))
	if o.ExpiresAt != nil {
		printField("Expires", o.ExpiresAt.Local().Format(time.RFC1123))
	}
	if o.RefreshToken != "" {
		printField("Refresh token", secret(o.RefreshToken))
		printField("Refresh URL", o.RefreshURL)
		dimColor.Fprintln(stdout, "  Save both as MCAUTH_REFRESH_TOKEN and MCAUTH_REFRESH_TOKEN_URL to skip interactive login.")
	}
	if o.ClientToken != "" {
		printField("Client token", o.ClientToken)
	}
	if o.MigrationEligible != nil && *o.MigrationEligible {
		warnColor.Fprintln(stdout, "  This account can be migrated to a Microsoft account.")
	}
}
