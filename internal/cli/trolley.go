package cli

import (
	"fmt"

	"github.com/trolley-watch/internal/repository"
	"github.com/trolley-watch/internal/service"

	"github.com/spf13/cobra"
)

// NewTrolleyCommand 推车管理命令
func NewTrolleyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trolley",
		Short: "Manage trolley records",
	}

	var code, status, cartID string
	upsert := &cobra.Command{
		Use:   "upsert",
		Short: "Create or update a trolley",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := rootOpts.DB()
			if err != nil {
				return err
			}
			svc := service.NewTrolleyService(repository.NewTrolleyRepository(db), repository.NewShoppingSessionRepository(db))
			input := service.UpsertTrolleyInput{Code: code, Status: status}
			if cmd.Flags().Changed("cart") {
				input.CurrentCart = &cartID
			}
			trolley, err := svc.Upsert(input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trolley %s status=%s cart=%s\n", trolley.Code, trolley.Status, trolley.CurrentCart)
			return nil
		},
	}
	upsert.Flags().StringVar(&code, "code", "", "trolley code")
	upsert.Flags().StringVar(&status, "status", "", "available | in-use | maintenance")
	upsert.Flags().StringVar(&cartID, "cart", "", "current cart id (required for in-use)")
	_ = upsert.MarkFlagRequired("code")
	_ = upsert.MarkFlagRequired("status")

	cmd.AddCommand(upsert)
	return cmd
}
