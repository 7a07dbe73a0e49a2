package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/trolley-watch/internal/authz"

	"github.com/spf13/cobra"
)

func (o *RootOptions) authzService() (*authz.Service, error) {
	db, err := o.DB()
	if err != nil {
		return nil, err
	}
	svc, err := authz.NewService(db)
	if err != nil {
		return nil, err
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		return nil, err
	}
	return svc, nil
}

// NewPolicyCommand 角色接口权限管理
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and adjust role permissions",
		Long:  "Role policies are stored in the casbin_rule table; running API servers pick up changes on restart.",
	}
	cmd.AddCommand(newPolicyListCommand(rootOpts))
	cmd.AddCommand(newPolicyChangeCommand(rootOpts, "grant"))
	cmd.AddCommand(newPolicyChangeCommand(rootOpts, "revoke"))
	return cmd
}

func newPolicyListCommand(rootOpts *RootOptions) *cobra.Command {
	var role string
	var effective bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the policies of a role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.authzService()
			if err != nil {
				return err
			}
			var policies []authz.Policy
			if effective {
				policies, err = svc.EffectivePolicies(role)
			} else {
				policies, err = svc.GetRolePolicies(role)
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SUBJECT\tACTION\tOBJECT")
			for _, p := range policies {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Subject, p.Action, p.Object)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role name, e.g. viewer")
	cmd.Flags().BoolVar(&effective, "effective", false, "include inherited policies")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newPolicyChangeCommand(rootOpts *RootOptions, verb string) *cobra.Command {
	var role, object, action string
	cmd := &cobra.Command{
		Use:   verb,
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a role policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rootOpts.authzService()
			if err != nil {
				return err
			}
			if verb == "grant" {
				err = svc.GrantRolePolicy(role, object, action)
			} else {
				err = svc.RevokeRolePolicy(role, object, action)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s for role %s\n", verb, authz.NormalizeAction(action), authz.NormalizeObject(object), role)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role name")
	cmd.Flags().StringVar(&object, "object", "", "route path, e.g. /monitors/:id")
	cmd.Flags().StringVar(&action, "action", "", "HTTP method or *")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("object")
	_ = cmd.MarkFlagRequired("action")
	return cmd
}
