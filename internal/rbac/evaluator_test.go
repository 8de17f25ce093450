package rbac

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
)

func TestAllowPermission(t *testing.T) {
	holder := &identity.Principal{Permissions: []string{"user:manage"}}
	if err := AllowPermission(holder, "user:manage"); err != nil {
		t.Fatalf("holder denied: %v", err)
	}
	if err := AllowPermission(holder, "role:manage"); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	super := &identity.Principal{Superuser: true}
	if err := AllowPermission(super, "anything"); err != nil {
		t.Fatalf("superuser denied: %v", err)
	}

	if err := AllowPermission(nil, "user:manage"); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("nil principal err = %v, want ErrForbidden", err)
	}
}

func TestAllowRole(t *testing.T) {
	member := &identity.Principal{RoleNames: []string{"editor"}}

	if err := AllowRole(member, "editor", true); err != nil {
		t.Fatalf("member denied: %v", err)
	}
	if err := AllowRole(member, "admin", true); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	// Checking a role nobody defined is a lookup failure, not a denial.
	if err := AllowRole(member, "ghost", false); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	// Superusers pass before the role existence check.
	super := &identity.Principal{Superuser: true}
	if err := AllowRole(super, "ghost", false); err != nil {
		t.Fatalf("superuser denied: %v", err)
	}
}

func TestAllowSelfOrPermission(t *testing.T) {
	self := uuid.New()
	other := uuid.New()

	plain := &identity.Principal{UserID: self}
	if err := AllowSelfOrPermission(plain, self, "user:manage"); err != nil {
		t.Fatalf("self denied: %v", err)
	}
	if err := AllowSelfOrPermission(plain, other, "user:manage"); !errors.Is(err, shared.ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}

	manager := &identity.Principal{UserID: self, Permissions: []string{"user:manage"}}
	if err := AllowSelfOrPermission(manager, other, "user:manage"); err != nil {
		t.Fatalf("manager denied: %v", err)
	}
}
