package store

import (
	"testing"

	"promptforge/internal/models"
)

func TestUserStoreCreateAndFind(t *testing.T) {
	db := testDB(t)
	email := "store-test-user@example.com"
	cleanUsers(t, db, email)
	t.Cleanup(func() { cleanUsers(t, db, email) })

	us := NewUserStore(db)

	created, err := us.Create(email, "store-test-user", "s3cret-pass", "Store Tester", models.RoleMember)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Email != email {
		t.Errorf("email: got %q, want %q", created.Email, email)
	}
	if created.Role != models.RoleMember {
		t.Errorf("role: got %q, want member", created.Role)
	}
	if created.PasswordHash == "s3cret-pass" {
		t.Error("password stored in plaintext")
	}
	if created.TOTPEnabled {
		t.Error("new user should not have 2FA enabled")
	}

	found, err := us.FindByEmail(email)
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Fatalf("FindByEmail returned wrong user: %+v", found)
	}

	byName, err := us.FindByUsername("store-test-user")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if byName == nil || byName.ID != created.ID {
		t.Fatalf("FindByUsername returned wrong user: %+v", byName)
	}

	byID, err := us.FindByID(created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if byID == nil || byID.Email != email {
		t.Fatalf("FindByID returned wrong user: %+v", byID)
	}
}

func TestUserStoreFindMissing(t *testing.T) {
	db := testDB(t)
	us := NewUserStore(db)

	u, err := us.FindByEmail("does-not-exist@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if u != nil {
		t.Errorf("expected nil for missing user, got %+v", u)
	}
}

func TestUserStoreCheckPassword(t *testing.T) {
	db := testDB(t)
	email := "store-test-password@example.com"
	cleanUsers(t, db, email)
	t.Cleanup(func() { cleanUsers(t, db, email) })

	us := NewUserStore(db)
	u, err := us.Create(email, "store-test-password", "correct-horse", "PW Tester", models.RoleMember)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if !us.CheckPassword(u, "correct-horse") {
		t.Error("correct password rejected")
	}
	if us.CheckPassword(u, "wrong-horse") {
		t.Error("wrong password accepted")
	}
}

func TestUserStoreTOTPLifecycle(t *testing.T) {
	db := testDB(t)
	email := "store-test-totp@example.com"
	cleanUsers(t, db, email)
	t.Cleanup(func() { cleanUsers(t, db, email) })

	us := NewUserStore(db)
	u, err := us.Create(email, "store-test-totp", "pass", "TOTP Tester", models.RoleMember)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := us.SetTOTPSecret(u.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetTOTPSecret: %v", err)
	}
	if err := us.EnableTOTP(u.ID); err != nil {
		t.Fatalf("EnableTOTP: %v", err)
	}

	u, err = us.FindByID(u.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !u.TOTPEnabled || u.TOTPSecret == nil {
		t.Error("2FA should be enabled with secret stored")
	}

	if err := us.ResetTOTP(u.ID); err != nil {
		t.Fatalf("ResetTOTP: %v", err)
	}
	u, err = us.FindByID(u.ID)
	if err != nil {
		t.Fatalf("FindByID after reset: %v", err)
	}
	if u.TOTPEnabled || u.TOTPSecret != nil {
		t.Error("2FA should be cleared after reset")
	}
}
