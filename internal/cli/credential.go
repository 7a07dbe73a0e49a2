package cli

import (
	"fmt"
	"strings"

	"github.com/trolley-watch/internal/cache"

	"github.com/spf13/cobra"
)

// NewCredentialCommand POS 服务端访问凭证管理
func NewCredentialCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the POS server bearer credential stored in Redis",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <token>",
		Short: "Store the bearer credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("token is empty")
			}
			if err := rootOpts.Redis(); err != nil {
				return err
			}
			if err := cache.SetUpstreamToken(cmd.Context(), token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credential stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Redis(); err != nil {
				return err
			}
			if err := cache.ClearUpstreamToken(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "credential cleared")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored credential (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.Redis(); err != nil {
				return err
			}
			token, err := cache.GetUpstreamToken(cmd.Context())
			if err != nil {
				return err
			}
			if token == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no credential stored")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), maskToken(token))
			return nil
		},
	})

	return cmd
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + strings.Repeat("*", len(token)-8) + token[len(token)-4:]
}
