package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	sdk "github.com/turtacn/keygate/sdk/go/keygate"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Issue, inspect, and manage API keys",
	}
	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyGetCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRecordCmd())
	cmd.AddCommand(newKeyValidateCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyReactivateCmd())
	cmd.AddCommand(newKeySetRateLimitCmd())
	cmd.AddCommand(newKeySetScopesCmd())
	cmd.AddCommand(newKeySetExpirationCmd())
	return cmd
}

// parseRef turns positional <authority> <owner> <sequence> args into a triple.
func parseRef(args []string) (authority, owner string, sequence uint64, err error) {
	sequence, err = strconv.ParseUint(args[2], 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("sequence must be a non-negative integer: %q", args[2])
	}
	return args[0], args[1], sequence, nil
}

func newKeyCreateCmd() *cobra.Command {
	var (
		name      string
		scopes    []string
		rateLimit int64
		expiresAt int64
	)
	cmd := &cobra.Command{
		Use:   "create <authority>",
		Short: "Issue a new key under a service, owned by the signer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			params := sdk.CreateKeyParams{Name: name, Scopes: scopes}
			if rateLimit >= 0 {
				rl := uint64(rateLimit)
				params.RateLimit = &rl
			}
			if expiresAt > 0 {
				params.ExpiresAt = &expiresAt
			}
			key, err := client.CreateKey(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "human-readable key name")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "granted scope (repeatable, \"*\" for all)")
	cmd.Flags().Int64Var(&rateLimit, "rate-limit", -1, "daily rate limit (-1 inherits the service default)")
	cmd.Flags().Int64Var(&expiresAt, "expires-at", 0, "expiry as a unix timestamp (0 = never)")
	return cmd
}

func newKeyGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <authority> <owner> <sequence>",
		Short: "Show a single key record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args)
			if err != nil {
				return err
			}
			key, err := client.GetKey(cmd.Context(), authority, owner, seq)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
}

func newKeyListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list <authority>",
		Short: "List keys issued under a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			keys, err := client.ListKeys(cmd.Context(), args[0], limit, offset)
			if err != nil {
				return err
			}
			return printJSON(keys)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum records to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	return cmd
}

func newKeyRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <authority> <owner> <sequence>",
		Short: "Record one request against a key (service authority only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args)
			if err != nil {
				return err
			}
			usage, err := client.RecordRequest(cmd.Context(), authority, owner, seq)
			if err != nil {
				return err
			}
			return printJSON(usage)
		},
	}
}

func newKeyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <authority> <owner> <sequence> <scope>",
		Short: "Check whether a key grants a scope",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args[:3])
			if err != nil {
				return err
			}
			if err := client.ValidateScope(cmd.Context(), authority, owner, seq, args[3]); err != nil {
				return err
			}
			fmt.Printf("scope %q granted\n", args[3])
			return nil
		},
	}
}

func newKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <authority> <owner> <sequence>",
		Short: "Revoke an active key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args)
			if err != nil {
				return err
			}
			key, err := client.Revoke(cmd.Context(), authority, owner, seq)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
}

func newKeyReactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reactivate <authority> <owner> <sequence>",
		Short: "Reactivate a revoked key",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args)
			if err != nil {
				return err
			}
			key, err := client.Reactivate(cmd.Context(), authority, owner, seq)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
}

func newKeySetRateLimitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-rate-limit <authority> <owner> <sequence> <limit>",
		Short: "Replace a key's daily rate limit (service authority only)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args[:3])
			if err != nil {
				return err
			}
			limit, err := strconv.ParseUint(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("limit must be a non-negative integer: %q", args[3])
			}
			key, err := client.UpdateRateLimit(cmd.Context(), authority, owner, seq, limit)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
}

func newKeySetScopesCmd() *cobra.Command {
	var scopes []string
	cmd := &cobra.Command{
		Use:   "set-scopes <authority> <owner> <sequence>",
		Short: "Replace a key's scope set (service authority only)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args)
			if err != nil {
				return err
			}
			key, err := client.UpdateScopes(cmd.Context(), authority, owner, seq, scopes)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "replacement scope (repeatable, \"*\" for all)")
	return cmd
}

func newKeySetExpirationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-expiration <authority> <owner> <sequence> <unix-timestamp>",
		Short: "Replace a key's expiry (service authority only)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newSDKClient()
			if err != nil {
				return err
			}
			authority, owner, seq, err := parseRef(args[:3])
			if err != nil {
				return err
			}
			expiresAt, err := strconv.ParseInt(args[3], 10, 64)
			if err != nil {
				return fmt.Errorf("expiry must be a unix timestamp: %q", args[3])
			}
			key, err := client.ExtendExpiration(cmd.Context(), authority, owner, seq, expiresAt)
			if err != nil {
				return err
			}
			return printJSON(key)
		},
	}
}
