package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/heyztb/go-mcauth/pkg/profile"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgYellow)
	dimColor     = color.New(color.Faint)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
)

var stdout io.Writer = os.Stdout

func printHeader(title string) {
	headerColor.Fprintln(stdout, title)
}

func printField(label, value string) {
	labelColor.Fprintf(stdout, "  %-16s", label+":")
	fmt.Fprintln(stdout, value)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// maskToken keeps the first and last four characters of long secrets.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", 8) + token[len(token)-4:]
}

// profileID is the dashed id of p, or "" when p has none.
func profileID(p *profile.GameProfile) string {
	if p.ID() == uuid.Nil {
		return ""
	}
	return p.ID().String()
}

func printProfile(p *profile.GameProfile) {
	printField("Profile", p.Name())
	if id := profileID(p); id != "" {
		printField("UUID", id)
	}
}
