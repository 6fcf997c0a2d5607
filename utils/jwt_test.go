package utils

import "testing"

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")

	token, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	if err := ValidateAdminToken(token); err != nil {
		t.Fatalf("expected token to validate: %v", err)
	}
}

func TestValidateAdminToken_WrongSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "secret-one")
	token, err := GenerateAdminToken()
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	t.Setenv("ADMIN_JWT_SECRET", "secret-two")
	if err := ValidateAdminToken(token); err == nil {
		t.Fatal("expected validation failure with a different secret")
	}
}

func TestValidateAdminToken_Garbage(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "test-secret")
	if err := ValidateAdminToken("not.a.token"); err == nil {
		t.Fatal("expected validation failure for garbage token")
	}
}

func TestGenerateAdminToken_MissingSecret(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	if _, err := GenerateAdminToken(); err == nil {
		t.Fatal("expected error when ADMIN_JWT_SECRET is unset")
	}
}
