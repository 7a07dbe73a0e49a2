package authz

import (
	"fmt"

	"github.com/trolley-watch/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: constants.OperatorRoleViewer,
			Policies: []Policy{
				{Object: "/trolleys", Action: "GET"},
				{Object: "/trolleys/:code", Action: "GET"},
				{Object: "/trolleys/:code/history", Action: "GET"},
				{Object: "/monitors", Action: "POST"},
				{Object: "/monitors/:id", Action: "GET"},
				{Object: "/monitors/:id", Action: "DELETE"},
				{Object: "/monitors/:id/reload", Action: "POST"},
				{Object: "/monitors/:id/notifications/:notice_id", Action: "DELETE"},
			},
		},
		{
			Role:     constants.OperatorRoleAuditor,
			Inherits: []string{constants.OperatorRoleViewer},
			Policies: []Policy{
				{Object: "/trolleys/:code", Action: "PUT"},
				{Object: "/monitors/:id/edit", Action: "*"},
				{Object: "/monitors/:id/edit/items/:index", Action: "*"},
				{Object: "/monitors/:id/edit/commit", Action: "POST"},
				{Object: "/events", Action: "POST"},
			},
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}

	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
