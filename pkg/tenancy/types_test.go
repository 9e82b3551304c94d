package tenancy

import (
	"testing"
	"time"
)

func TestOrgRole_Dominates(t *testing.T) {
	tests := []struct {
		grantor OrgRole
		granted OrgRole
		want    bool
	}{
		{OrgRoleOwner, OrgRoleOwner, true},
		{OrgRoleOwner, OrgRoleAdmin, true},
		{OrgRoleOwner, OrgRoleMember, true},
		{OrgRoleAdmin, OrgRoleOwner, false},
		{OrgRoleAdmin, OrgRoleAdmin, true},
		{OrgRoleAdmin, OrgRoleMember, true},
		{OrgRoleMember, OrgRoleMember, true},
		{OrgRoleMember, OrgRoleAdmin, false},
	}

	for _, tt := range tests {
		if got := tt.grantor.Dominates(tt.granted); got != tt.want {
			t.Errorf("%s.Dominates(%s) = %v, want %v", tt.grantor, tt.granted, got, tt.want)
		}
	}
}

func TestOrgRole_Valid(t *testing.T) {
	for _, role := range []OrgRole{OrgRoleOwner, OrgRoleAdmin, OrgRoleMember} {
		if !role.Valid() {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if OrgRole("superuser").Valid() {
		t.Error("expected unknown org role to be invalid")
	}
}

func TestWorkflowRole_Valid(t *testing.T) {
	for _, role := range []WorkflowRole{
		WorkflowRoleSubmitter, WorkflowRoleReviewer, WorkflowRoleApprover,
		WorkflowRoleStoreManager, WorkflowRoleSuperAdmin,
	} {
		if !role.Valid() {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if WorkflowRole("owner").Valid() {
		t.Error("expected unknown workflow role to be invalid")
	}
}

func TestPlatformAdmin_AllowsIP(t *testing.T) {
	admin := &PlatformAdmin{IPAllowList: []string{"10.0.0.1", "10.0.0.2"}}

	if !admin.AllowsIP("10.0.0.1") {
		t.Error("expected allow-listed IP to be permitted")
	}
	if admin.AllowsIP("192.168.1.1") {
		t.Error("expected unknown IP to be blocked")
	}

	open := &PlatformAdmin{}
	if !open.AllowsIP("192.168.1.1") {
		t.Error("expected empty allow-list to permit any IP")
	}
}

func TestPlatformAdmin_Lockout(t *testing.T) {
	until := time.Now().Add(10 * time.Minute)
	admin := &PlatformAdmin{LockedUntil: &until}

	if admin.LockedUntil == nil || !admin.LockedUntil.After(time.Now()) {
		t.Error("expected lockout to be in the future")
	}
}
