package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "reader read", role: RoleReader, action: ActionRead, allow: true},
		{name: "reader comment", role: RoleReader, action: ActionComment, allow: true},
		{name: "reader publish", role: RoleReader, action: ActionPublish, allow: false},
		{name: "author publish", role: RoleAuthor, action: ActionPublish, allow: true},
		{name: "author manage", role: RoleAuthor, action: ActionManage, allow: false},
		{name: "admin manage", role: RoleAdmin, action: ActionManage, allow: true},
		{name: "unknown read", role: Role("ghost"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Fatal("admin should normalize to itself")
	}
	if Normalize("") != RoleReader {
		t.Fatal("empty role should fall back to reader")
	}
	if Normalize("superuser") != RoleReader {
		t.Fatal("unknown role should fall back to reader")
	}
}
