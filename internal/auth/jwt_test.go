package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/heartmarshall/cypress-connect/internal/domain"
)

const testSecret = "test-secret-at-least-32-chars-long-for-security"

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		id   domain.Moderator
		want domain.Moderator
	}{
		{
			name: "leader",
			id:   domain.Moderator{UID: "M1", Email: "lead@cypress.org", Role: domain.UserRoleLeader},
			want: domain.Moderator{UID: "M1", Email: "lead@cypress.org", Role: domain.UserRoleLeader},
		},
		{
			name: "resident",
			id:   domain.Moderator{UID: "U1", Email: "neighbor@cypress.org", Role: domain.UserRoleResident},
			want: domain.Moderator{UID: "U1", Email: "neighbor@cypress.org", Role: domain.UserRoleResident},
		},
		{
			name: "unknown role degrades to resident",
			id:   domain.Moderator{UID: "U2", Role: domain.UserRole("admin")},
			want: domain.Moderator{UID: "U2", Role: domain.UserRoleResident},
		},
	}

	manager := NewJWTManager(testSecret, "cypress-test", 15*time.Minute)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			token, err := manager.GenerateAccessToken(tt.id)
			if err != nil {
				t.Fatalf("GenerateAccessToken failed: %v", err)
			}

			got, err := manager.ValidateAccessToken(token)
			if err != nil {
				t.Fatalf("ValidateAccessToken failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("identity = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestJWTManager_GenerateAccessToken_EmptyUID(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "cypress-test", time.Minute)
	if _, err := manager.GenerateAccessToken(domain.Moderator{Role: domain.UserRoleLeader}); err == nil {
		t.Fatal("expected error for empty uid")
	}
}

func TestJWTManager_ValidateAccessToken_Expired(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "cypress-test", -1*time.Hour)
	token, err := manager.GenerateAccessToken(domain.Moderator{UID: "U1", Role: domain.UserRoleResident})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for expired token, got nil")
	}
}

func TestJWTManager_ValidateAccessToken_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewJWTManager(testSecret, "cypress-test", time.Minute)
	other := NewJWTManager("another-secret-that-is-also-32-chars-long", "cypress-test", time.Minute)

	token, err := issuer.GenerateAccessToken(domain.Moderator{UID: "U1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}

func TestJWTManager_ValidateAccessToken_WrongIssuer(t *testing.T) {
	t.Parallel()

	a := NewJWTManager(testSecret, "issuer-a", time.Minute)
	b := NewJWTManager(testSecret, "issuer-b", time.Minute)

	token, err := a.GenerateAccessToken(domain.Moderator{UID: "U1"})
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if _, err := b.ValidateAccessToken(token); err == nil {
		t.Fatal("expected error for foreign issuer")
	}
}

func TestJWTManager_ValidateAccessToken_Malformed(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager(testSecret, "cypress-test", time.Minute)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := manager.ValidateAccessToken(token); err == nil {
			t.Errorf("ValidateAccessToken(%q) expected error", token)
		}
	}
}

func TestJWTManager_ValidateAccessToken_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	claims := jwt.MapClaims{"sub": "M1", "iss": "cypress-test", "role": "leader", "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	manager := NewJWTManager(testSecret, "cypress-test", time.Minute)
	_, err = manager.ValidateAccessToken(token)
	if err == nil {
		t.Fatal("expected error for unsigned token")
	}
	if !strings.Contains(err.Error(), "parse token") {
		t.Errorf("unexpected error: %v", err)
	}
}
