package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage service registrations",
	}
	cmd.AddCommand(newServiceCreateCmd())
	cmd.AddCommand(newServiceGetCmd())
	return cmd
}

func newServiceCreateCmd() *cobra.Command {
	var rateLimit uint64
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register the signer as a new service authority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			svc, err := client.CreateService(cmd.Context(), args[0], rateLimit)
			if err != nil {
				return err
			}
			return printJSON(svc)
		},
	}
	cmd.Flags().Uint64Var(&rateLimit, "default-rate-limit", 0, "default daily rate limit for issued keys (0 = unlimited)")
	return cmd
}

func newServiceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <authority>",
		Short: "Show a registered service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			svc, err := client.GetService(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(svc)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
