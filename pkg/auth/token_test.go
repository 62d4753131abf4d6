package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	"github.com/pixiedvc/pixiedvc-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "pixiedvc"}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(testJWT, now, 30*time.Minute, AccessTokenPayload{UserID: userID, Role: enums.ActorRoleOwner})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}

	claims, err := ParseAccessToken(testJWT, token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Role != enums.ActorRoleOwner {
		t.Fatalf("unexpected role %s", claims.Role)
	}
	if claims.Issuer != testJWT.Issuer {
		t.Fatalf("expected issuer %s, got %s", testJWT.Issuer, claims.Issuer)
	}
	if claims.ID == "" {
		t.Fatal("expected jti to be generated")
	}
}

func TestParseAccessTokenInvalidSignature(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), 10*time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleAdmin})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	if _, err := ParseAccessToken(testJWT, token+"x"); err == nil {
		t.Fatal("expected invalid signature error")
	}
	other := config.JWTConfig{Secret: "secret", Issuer: "someone-else"}
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected issuer mismatch error")
	}
}

func TestParseAccessTokenExpired(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-time.Hour), 15*time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: enums.ActorRoleGuest})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	_, err = ParseAccessToken(testJWT, token)
	if err == nil {
		t.Fatal("expected expiration error")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	if _, err := MintAccessToken(testJWT, time.Now(), time.Minute, AccessTokenPayload{UserID: uuid.New(), Role: "vendor"}); err == nil {
		t.Fatal("expected invalid role error")
	}
}
