package authz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/trolley-watch/internal/constants"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap roles failed: %v", err)
	}
	return svc
}

func TestViewerCanReadButNotEdit(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	cases := []struct {
		path   string
		method string
		allow  bool
	}{
		{"/api/v1/trolleys/T-1", "get", true},
		{"/api/v1/monitors/abc", "GET", true},
		{"/api/v1/monitors/abc/notifications/n1", "DELETE", true},
		{"/api/v1/monitors/abc/edit", "POST", false},
		{"/api/v1/monitors/abc/edit/commit", "POST", false},
		{"/api/v1/trolleys/T-1", "PUT", false},
		{"/api/v1/events", "POST", false},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceRole(constants.OperatorRoleViewer, tc.path, tc.method)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.method, tc.path, err)
		}
		if allow != tc.allow {
			t.Fatalf("%s %s: expected allow=%v", tc.method, tc.path, tc.allow)
		}
	}
}

func TestAuditorInheritsViewer(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	for _, tc := range []struct{ path, method string }{
		{"/api/v1/trolleys", "GET"},
		{"/api/v1/monitors/abc/edit/items/0", "PATCH"},
		{"/api/v1/monitors/abc/edit", "DELETE"},
		{"/api/v1/monitors/abc/edit/commit", "POST"},
		{"/api/v1/events", "POST"},
	} {
		allow, err := svc.EnforceRole(constants.OperatorRoleAuditor, tc.path, tc.method)
		if err != nil || !allow {
			t.Fatalf("auditor should be allowed %s %s: %v", tc.method, tc.path, err)
		}
	}
}

func TestGrantAndRevokeRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("viewer", "/api/v1/events", "post"); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	allow, err := svc.EnforceRole("viewer", "/api/v1/events", "POST")
	if err != nil || !allow {
		t.Fatalf("expected granted policy to allow: %v", err)
	}
	if err := svc.RevokeRolePolicy("viewer", "/events", "POST"); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	allow, err = svc.EnforceRole("viewer", "/api/v1/events", "POST")
	if err != nil || allow {
		t.Fatalf("expected revoked policy to deny: %v", err)
	}

	policies, err := svc.GetRolePolicies("auditor")
	if err != nil {
		t.Fatalf("get policies failed: %v", err)
	}
	if len(policies) != 5 || policies[0].Subject != "role:auditor" {
		t.Fatalf("unexpected auditor policies: %+v", policies)
	}
}

func TestNormalizeRoleAndObject(t *testing.T) {
	if _, err := NormalizeRole("  "); err == nil {
		t.Fatalf("expected error for empty role")
	}
	if got, _ := NormalizeRole("store viewer"); got != "role:store_viewer" {
		t.Fatalf("unexpected role: %s", got)
	}
	if got := NormalizeObject("/api/v1"); got != "/" {
		t.Fatalf("unexpected object: %s", got)
	}
	if got := NormalizeObject("monitors/:id"); got != "/monitors/:id" {
		t.Fatalf("unexpected object: %s", got)
	}
}

func TestEffectivePoliciesIncludeInherited(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	parents, err := svc.ParentRoles(constants.OperatorRoleAuditor)
	if err != nil {
		t.Fatalf("parent roles failed: %v", err)
	}
	if len(parents) != 1 || parents[0] != constants.OperatorRoleViewer {
		t.Fatalf("unexpected parents: %v", parents)
	}

	viewer, err := svc.EffectivePolicies(constants.OperatorRoleViewer)
	if err != nil {
		t.Fatalf("viewer policies failed: %v", err)
	}
	auditor, err := svc.EffectivePolicies(constants.OperatorRoleAuditor)
	if err != nil {
		t.Fatalf("auditor policies failed: %v", err)
	}
	if len(viewer) != 8 || len(auditor) != len(viewer)+5 {
		t.Fatalf("unexpected policy counts: viewer=%d auditor=%d", len(viewer), len(auditor))
	}
	for i := 1; i < len(auditor); i++ {
		if auditor[i-1].Object > auditor[i].Object {
			t.Fatalf("policies not sorted: %+v", auditor)
		}
	}
}

func TestNilServiceUnavailable(t *testing.T) {
	var svc *Service
	if _, err := svc.EnforceRole("viewer", "/trolleys", "GET"); err != ErrServiceUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if err := svc.GrantRolePolicy("viewer", "/events", ""); err != ErrServiceUnavailable {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
