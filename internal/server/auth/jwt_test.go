package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")
	caps := []string{common.CapTrackTime, common.CapViewTimesheets}

	tok, err := GenerateToken(123, caps, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	claims, err := ParseToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseToken error: %v", err)
	}
	if claims.UserID != 123 {
		t.Fatalf("userID mismatch: got %d want 123", claims.UserID)
	}
	if claims.Subject != "123" {
		t.Fatalf("subject mismatch: got %q", claims.Subject)
	}
	if len(claims.Capabilities) != 2 || claims.Capabilities[1] != common.CapViewTimesheets {
		t.Fatalf("capabilities mismatch: %v", claims.Capabilities)
	}
}

func TestParseToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken(1, nil, secret, -1*time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, secret)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(2, nil, []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = ParseToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{UserID: 3}).SignedString(secret)
	if err != nil {
		t.Fatalf("SignedString error: %v", err)
	}

	if _, err := ParseToken(tok, secret); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseToken_RequiresUserID(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := GenerateToken(0, nil, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	if _, err := ParseToken(tok, secret); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestCapabilitiesForRole(t *testing.T) {
	t.Parallel()

	caps, err := CapabilitiesForRole("team_member")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(caps) != 1 || caps[0] != common.CapTrackTime {
		t.Fatalf("unexpected member capabilities: %v", caps)
	}

	caps[0] = "mutated"
	again, _ := CapabilitiesForRole("team_member")
	if again[0] != common.CapTrackTime {
		t.Fatal("role table was mutated through the returned slice")
	}

	if _, err := CapabilitiesForRole("intern"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
