package cli

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/heyztb/go-mcauth/pkg/session"
	"github.com/spf13/cobra"
)

var (
	serverIDSecret    string
	serverIDPublicKey string
)

var serverIDCmd = &cobra.Command{
	Use:   "server-id <base>",
	Short: "Compute the session server hash of a server id",
	Long: `Compute the hash a client sends when joining a server and the server
checks with has-joined. The shared secret is given in hex and the public key
as a file holding the server's DER encoded key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := hex.DecodeString(serverIDSecret)
		if err != nil {
			return fmt.Errorf("decoding --secret: %w", err)
		}
		var pub []byte
		if serverIDPublicKey != "" {
			pub, err = os.ReadFile(serverIDPublicKey)
			if err != nil {
				return fmt.Errorf("reading public key: %w", err)
			}
		}

		hash := session.ServerID(args[0], secret, pub)
		if jsonOutput {
			return printJSON(map[string]string{"server_id": hash})
		}
		fmt.Fprintln(stdout, hash)
		return nil
	},
}

var hasJoinedCmd = &cobra.Command{
	Use:   "has-joined <name> <server-hash>",
	Short: "Check whether a player has joined a server",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions := session.NewService(session.Config{Transport: client, Logger: logger})
		p, err := sessions.HasJoined(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{"joined": p != nil, "profile": p})
		}
		if p == nil {
			warnColor.Fprintf(stdout, "%s has not joined\n", args[0])
			return nil
		}
		printHeader("Joined")
		printProfile(p)
		for _, prop := range p.Properties() {
			state := "unsigned"
			if prop.HasSignature() {
				state = "signed"
			}
			printField(prop.Name, state)
		}
		return nil
	},
}

func init() {
	serverIDCmd.Flags().StringVar(&serverIDSecret, "secret", "", "Shared secret in hex")
	serverIDCmd.Flags().StringVar(&serverIDPublicKey, "public-key", "", "File holding the DER encoded server public key")
	rootCmd.AddCommand(serverIDCmd)
	rootCmd.AddCommand(hasJoinedCmd)
}
