package cli

import (
	"fmt"
	"sync"

	"github.com/heyztb/go-mcauth/pkg/profile"
	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <name>...",
	Short: "Resolve player names to profile UUIDs",
	Long: `Resolve player names to profiles in pages of 100. Names are matched
case-insensitively and duplicates are dropped. Request pacing follows
MCAUTH_LOOKUP_PAGE_DELAY and MCAUTH_LOOKUP_FAILURE_DELAY.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}

func newLookup() *profile.Lookup {
	return profile.NewLookup(profile.LookupConfig{
		Transport:    client,
		Logger:       logger,
		PageDelay:    cfg.LookupPageDelay,
		FailureDelay: cfg.LookupFailureDelay,
	})
}

type lookupResult struct {
	Name  string `json:"name"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

func runLookup(cmd *cobra.Command, args []string) error {
	var (
		mu      sync.Mutex
		results []lookupResult
		missing int
	)
	cb := profile.LookupFuncs{
		Found: func(p *profile.GameProfile) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, lookupResult{Name: p.Name(), ID: profileID(p)})
			if !jsonOutput {
				printField(p.Name(), profileID(p))
			}
		},
		NotFound: func(name string, err error) {
			mu.Lock()
			defer mu.Unlock()
			missing++
			results = append(results, lookupResult{Name: name, Error: err.Error()})
			if !jsonOutput {
				labelColor.Fprintf(stdout, "  %-16s", name+":")
				errorColor.Fprintln(stdout, "not found")
				logger.Debug("lookup failed", "name", name, "error", err)
			}
		},
	}

	if !jsonOutput {
		printHeader("Profiles")
	}
	if err := newLookup().FindProfilesByName(cmd.Context(), args, cb); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(results)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d names not found", missing, len(results))
	}
	return nil
}
