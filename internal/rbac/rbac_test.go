package rbac

import "testing"

func TestAdminCanManage(t *testing.T) {
	if !Can(RoleAdmin, ActionManage) {
		t.Fatal("expected admin to manage")
	}
	if !Can(RoleAdmin, ActionRead) {
		t.Fatal("expected admin to read")
	}
}

func TestViewerCannotManage(t *testing.T) {
	if Can(RoleViewer, ActionManage) {
		t.Fatal("expected viewer to be denied manage")
	}
	if !Can(RoleViewer, ActionRead) {
		t.Fatal("expected viewer to read")
	}
}

func TestUnknownRoleDeniedEverything(t *testing.T) {
	if Can(Role("owner"), ActionRead) {
		t.Fatal("expected unknown role to be denied")
	}
}

func TestNormalizeDefaultsToViewer(t *testing.T) {
	if Normalize("superuser") != RoleViewer {
		t.Fatal("expected unknown role to normalize to viewer")
	}
	if Normalize("admin") != RoleAdmin {
		t.Fatal("expected admin to survive normalization")
	}
}
