package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	apiV1Prefix     = "/api/v1"
	casbinTableName = "casbin_rule"
	rolePrefix      = "role:"
)

// 操作员角色即 casbin 主体，auditor 通过 g 规则继承 viewer 的全部接口
const operatorRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

var (
	ErrServiceUnavailable = errors.New("authz service unavailable")
	ErrRoleRequired       = errors.New("role is required")
	ErrActionRequired     = errors.New("action is required")
)

// Policy 接口权限策略
type Policy struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Service 操作员接口授权
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务，策略持久化在 casbin_rule 表
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("authz db is nil")
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", casbinTableName)
	if err != nil {
		return nil, fmt.Errorf("create authz adapter failed: %w", err)
	}
	m, err := model.NewModelFromString(operatorRBACModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load authz policy failed: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrServiceUnavailable
	}
	return nil
}

// EnforceRole 判断角色能否以 act 访问 obj，obj 可带 /api/v1 前缀
func (s *Service) EnforceRole(role, obj, act string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	subject, err := NormalizeRole(role)
	if err != nil {
		return false, err
	}
	return s.enforcer.Enforce(subject, NormalizeObject(obj), NormalizeAction(act))
}

// GrantRolePolicy 为角色授予接口权限
func (s *Service) GrantRolePolicy(role, object, action string) error {
	rule, err := s.policyRule(role, object, action)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.AddPolicy(rule...); err != nil {
		return fmt.Errorf("grant policy failed: %w", err)
	}
	return nil
}

// RevokeRolePolicy 撤销角色的接口权限
func (s *Service) RevokeRolePolicy(role, object, action string) error {
	rule, err := s.policyRule(role, object, action)
	if err != nil {
		return err
	}
	if _, err := s.enforcer.RemovePolicy(rule...); err != nil {
		return fmt.Errorf("revoke policy failed: %w", err)
	}
	return nil
}

func (s *Service) policyRule(role, object, action string) ([]interface{}, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	act := NormalizeAction(action)
	if act == "" {
		return nil, ErrActionRequired
	}
	return []interface{}{subject, NormalizeObject(object), act}, nil
}

// GetRolePolicies 角色直接拥有的策略
func (s *Service) GetRolePolicies(role string) ([]Policy, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	rules, err := s.enforcer.GetFilteredPolicy(0, subject)
	if err != nil {
		return nil, fmt.Errorf("get role policies failed: %w", err)
	}
	return sortPolicies(convertPolicies(rules)), nil
}

// EffectivePolicies 角色含继承在内的全部策略
func (s *Service) EffectivePolicies(role string) ([]Policy, error) {
	subjects, err := s.roleChain(role)
	if err != nil {
		return nil, err
	}
	policies := make([]Policy, 0)
	for _, subject := range subjects {
		rules, err := s.enforcer.GetFilteredPolicy(0, subject)
		if err != nil {
			return nil, fmt.Errorf("get role policies failed: %w", err)
		}
		policies = append(policies, convertPolicies(rules)...)
	}
	return sortPolicies(policies), nil
}

// ParentRoles 角色继承的上级角色（不含自身）
func (s *Service) ParentRoles(role string) ([]string, error) {
	subjects, err := s.roleChain(role)
	if err != nil {
		return nil, err
	}
	parents := make([]string, 0, len(subjects)-1)
	for _, subject := range subjects[1:] {
		parents = append(parents, strings.TrimPrefix(subject, rolePrefix))
	}
	sort.Strings(parents)
	return parents, nil
}

// roleChain 自身在首位，随后按广度优先列出全部上级角色
func (s *Service) roleChain(role string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	subject, err := NormalizeRole(role)
	if err != nil {
		return nil, err
	}
	chain := []string{subject}
	seen := map[string]struct{}{subject: {}}
	for i := 0; i < len(chain); i++ {
		parents, err := s.enforcer.GetRolesForUser(chain[i])
		if err != nil {
			return nil, fmt.Errorf("get parent roles failed: %w", err)
		}
		for _, parent := range parents {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			chain = append(chain, parent)
		}
	}
	return chain, nil
}

func convertPolicies(rules [][]string) []Policy {
	policies := make([]Policy, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		policies = append(policies, Policy{
			Subject: strings.TrimSpace(rule[0]),
			Object:  NormalizeObject(rule[1]),
			Action:  NormalizeAction(rule[2]),
		})
	}
	return policies
}

func sortPolicies(policies []Policy) []Policy {
	sort.Slice(policies, func(i, j int) bool {
		if policies[i].Object != policies[j].Object {
			return policies[i].Object < policies[j].Object
		}
		if policies[i].Action != policies[j].Action {
			return policies[i].Action < policies[j].Action
		}
		return policies[i].Subject < policies[j].Subject
	})
	return policies
}

// NormalizeRole 角色名转为 casbin 主体，如 viewer -> role:viewer
func NormalizeRole(role string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(role), rolePrefix)
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeObject 路由路径去掉 /api/v1 前缀
func NormalizeObject(object string) string {
	normalized := strings.TrimSpace(object)
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if normalized == apiV1Prefix {
		return "/"
	}
	if rest := strings.TrimPrefix(normalized, apiV1Prefix+"/"); rest != normalized {
		return "/" + rest
	}
	return normalized
}

// NormalizeAction 动作统一为大写 HTTP 方法
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
