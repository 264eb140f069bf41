// Package cli implements the keygate-admin command tree.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	sdk "github.com/turtacn/keygate/sdk/go/keygate"
)

var (
	flagServer string
	flagSecret string
	flagSigner string
	flagIssuer string
)

var rootCmd = &cobra.Command{
	Use:   "keygate-admin",
	Short: "Administer a KeyGate deployment",
	Long: `keygate-admin is a command-line interface for operating the KeyGate API key
service: registering services, issuing and revoking keys, and inspecting
usage counters.`,
	SilenceUsage: true,
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "http://localhost:8080", "KeyGate server base URL")
	rootCmd.PersistentFlags().StringVar(&flagSecret, "secret", os.Getenv("KEYGATE_AUTH_JWT_SECRET"), "shared JWT secret")
	rootCmd.PersistentFlags().StringVar(&flagSigner, "as", "", "signer identity to act as")
	rootCmd.PersistentFlags().StringVar(&flagIssuer, "issuer", "keygate", "token issuer claim")

	rootCmd.AddCommand(newServiceCmd())
	rootCmd.AddCommand(newKeyCmd())
}

func newSDKClient() (*sdk.Client, error) {
	if flagSecret == "" {
		return nil, fmt.Errorf("--secret (or KEYGATE_AUTH_JWT_SECRET) is required")
	}
	if flagSigner == "" {
		return nil, fmt.Errorf("--as is required: every operation acts on behalf of a signer")
	}
	return sdk.NewClient(flagServer, &sdk.HMACSigner{
		Secret: flagSecret,
		Issuer: flagIssuer,
		Signer: flagSigner,
		TTL:    2 * time.Minute,
	}), nil
}
