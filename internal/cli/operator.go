package cli

import (
	"fmt"
	"time"

	"github.com/trolley-watch/internal/constants"
	"github.com/trolley-watch/internal/repository"
	"github.com/trolley-watch/internal/service"

	"github.com/spf13/cobra"
)

func (o *RootOptions) operatorAuthService() (*service.OperatorAuthService, error) {
	db, err := o.DB()
	if err != nil {
		return nil, err
	}
	return service.NewOperatorAuthService(&o.Config().JWT, repository.NewOperatorRepository(db)), nil
}

// NewOperatorCommand 操作员管理命令
func NewOperatorCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage store operators",
	}
	cmd.AddCommand(newOperatorCreateCommand(rootOpts))
	cmd.AddCommand(newOperatorRevokeCommand(rootOpts))
	return cmd
}

func newOperatorCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var username, role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator with the viewer or auditor role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.operatorAuthService()
			if err != nil {
				return err
			}
			operator, err := svc.CreateOperator(username, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created operator %s (id=%d, role=%s)\n", operator.Username, operator.ID, operator.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator username")
	cmd.Flags().StringVar(&role, "role", constants.OperatorRoleViewer, "role: viewer | auditor")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newOperatorRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "Revoke every token issued to an operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.operatorAuthService()
			if err != nil {
				return err
			}
			// Redis 可选：启用时同时清除鉴权缓存
			_ = rootOpts.Redis()
			if err := svc.RevokeTokens(cmd.Context(), username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked tokens of %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator username")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// NewTokenCommand 签发操作员令牌
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var username string
	var hours int
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an operator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootOpts.Config().JWT.SecretKey == "" {
				return fmt.Errorf("jwt.secret is not configured")
			}
			svc, err := rootOpts.operatorAuthService()
			if err != nil {
				return err
			}
			token, expiresAt, err := svc.IssueToken(username, time.Duration(hours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "operator username")
	cmd.Flags().IntVar(&hours, "hours", 0, "token lifetime in hours (default: jwt.expire_hours)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
