package cli

import (
	"crypto/rsa"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/pkg/profile"
	"github.com/heyztb/go-mcauth/pkg/session"
	"github.com/spf13/cobra"
)

var texturesInsecure bool

var texturesCmd = &cobra.Command{
	Use:   "textures <name|uuid>",
	Short: "Fetch and verify the skin and cape of a player",
	Long: `Fetch the signed profile properties of a player from the session
server and decode the textures property.

The payload signature is checked against the session server key shipped
with mcauth, or the key in MCAUTH_TEXTURE_KEY_FILE when set, and texture
hosts against MCAUTH_TEXTURE_DOMAINS. --insecure decodes the textures
unverified.`,
	Args: cobra.ExactArgs(1),
	RunE: runTextures,
}

func init() {
	texturesCmd.Flags().BoolVar(&texturesInsecure, "insecure", false, "Skip signature and domain checks")
	rootCmd.AddCommand(texturesCmd)
}

func runTextures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// nil selects the embedded session server key.
	var key *rsa.PublicKey
	if cfg.TextureKeyFile != "" {
		k, err := profile.LoadPublicKey(cfg.TextureKeyFile)
		if err != nil {
			return err
		}
		key = k
	}

	p, err := resolveProfile(cmd, args[0])
	if err != nil {
		return err
	}

	sessions := session.NewService(session.Config{Transport: client, Logger: logger})
	if err := sessions.FillProfileProperties(ctx, p); err != nil {
		return err
	}

	verifier := profile.NewVerifier(key, cfg.TextureDomains...).WithLogger(logger)
	textures, err := verifier.Textures(p, !texturesInsecure)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(struct {
			Profile  *profile.GameProfile                    `json:"profile"`
			Verified bool                                    `json:"verified"`
			Textures map[profile.TextureType]profile.Texture `json:"textures"`
		}{p, !texturesInsecure, textures})
	}

	printHeader("Textures of " + displayName(p))
	if id := profileID(p); id != "" {
		printField("UUID", id)
	}
	if texturesInsecure {
		warnColor.Fprintln(stdout, "  Signature not verified")
	} else {
		printField("Signature", successColor.Sprint("valid"))
	}
	if len(textures) == 0 {
		dimColor.Fprintln(stdout, "  No textures")
		return nil
	}

	types := make([]string, 0, len(textures))
	for t := range textures {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		tex := textures[profile.TextureType(t)]
		label := t
		if profile.TextureType(t) == profile.TextureSkin {
			label = fmt.Sprintf("%s (%s)", t, tex.Model())
		}
		printField(label, tex.URL)
		printField("  hash", tex.Hash())
	}
	return nil
}

// resolveProfile turns a UUID argument into a bare profile, or looks up a
// player name.
func resolveProfile(cmd *cobra.Command, arg string) (*profile.GameProfile, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return profile.NewGameProfile(id, "")
	}

	var (
		found   *profile.GameProfile
		lookErr error
	)
	lookup := newLookup()
	err := lookup.FindProfilesByName(cmd.Context(), []string{arg}, profile.LookupFuncs{
		Found:    func(p *profile.GameProfile) { found = p },
		NotFound: func(name string, err error) { lookErr = err },
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		if lookErr == nil {
			lookErr = profile.ErrProfileNotFound
		}
		return nil, fmt.Errorf("player %q: %w", arg, lookErr)
	}
	return found, nil
}

func displayName(p *profile.GameProfile) string {
	if p.Name() != "" {
		return p.Name()
	}
	return profileID(p)
}
