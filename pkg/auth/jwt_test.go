package auth

import (
	"strings"
	"testing"
	"time"
)

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", false},
		{"lowercase bearer", "bearer abc123", "abc123", false},
		{"empty header", "", "", true},
		{"missing token", "Bearer ", "", true},
		{"wrong scheme", "Basic abc123", "", true},
		{"no scheme", "abc123", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.header)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestNewJWTAuth_EmptySecret(t *testing.T) {
	if _, err := NewJWTAuth("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	jwtAuth, err := NewJWTAuth("test-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	user := &User{
		ID:        "user-1",
		Username:  "alice",
		Email:     "alice@example.com",
		IsPremium: true,
	}

	token, err := jwtAuth.GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	got, err := jwtAuth.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if *got != *user {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, user)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	signer, _ := NewJWTAuth("secret-a", time.Hour)
	verifier, _ := NewJWTAuth("secret-b", time.Hour)

	token, err := signer.GenerateToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected verification to fail with the wrong secret")
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	jwtAuth, _ := NewJWTAuth("test-secret", -time.Minute)

	token, err := jwtAuth.GenerateToken(&User{ID: "user-1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := jwtAuth.VerifyToken(token); err == nil {
		t.Fatal("expected verification to fail for an expired token")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !strings.HasPrefix(hash, "argon2id$") {
		t.Fatalf("unexpected hash format: %q", hash)
	}

	ok, err := VerifyPassword(hash, "Sup3rSecret")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Error("correct password rejected")
	}

	ok, err = VerifyPassword(hash, "WrongPassword1")
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Error("wrong password accepted")
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ by salt")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, hash := range []string{"", "bcrypt$abc", "argon2id$onlyonepart", "argon2id$!!$!!"} {
		if _, err := VerifyPassword(hash, "whatever"); err == nil {
			t.Errorf("expected error for malformed hash %q", hash)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"Sup3rSecret", false},
		{"short1A", true},
		{"alllowercase1", true},
		{"ALLUPPERCASE1", true},
		{"NoNumbersHere", true},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) err = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}
