package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tiendamx/tienda-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "tienda-backend",
		ExpirationMinutes: 60,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	adminID := uuid.New()
	now := time.Now()

	signed, err := MintAccessToken(cfg, now, AccessTokenPayload{
		AdminID: adminID,
		Email:   "admin@tienda.mx",
		Name:    "Ana",
	})
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}

	claims, err := ParseAccessToken(cfg, signed)
	if err != nil {
		t.Fatalf("ParseAccessToken returned error: %v", err)
	}
	if claims.AdminID != adminID {
		t.Errorf("admin id = %s, want %s", claims.AdminID, adminID)
	}
	if claims.Email != "admin@tienda.mx" {
		t.Errorf("email = %s", claims.Email)
	}
	if claims.Issuer != cfg.Issuer {
		t.Errorf("issuer = %s, want %s", claims.Issuer, cfg.Issuer)
	}
	if claims.Subject != adminID.String() {
		t.Errorf("subject = %s, want %s", claims.Subject, adminID)
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	adminID := uuid.New()
	now := time.Now()

	cases := []struct {
		name    string
		cfg     config.JWTConfig
		payload AccessTokenPayload
	}{
		{"missing secret", config.JWTConfig{Issuer: "x", ExpirationMinutes: 5}, AccessTokenPayload{AdminID: adminID}},
		{"missing issuer", config.JWTConfig{Secret: "x", ExpirationMinutes: 5}, AccessTokenPayload{AdminID: adminID}},
		{"zero expiry", config.JWTConfig{Secret: "x", Issuer: "x"}, AccessTokenPayload{AdminID: adminID}},
		{"nil admin id", testJWTConfig(), AccessTokenPayload{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := MintAccessToken(tc.cfg, now, tc.payload); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()
	signed, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "admin@tienda.mx",
	})
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}
	if _, err := ParseAccessToken(cfg, signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	signed, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		AdminID: uuid.New(),
		Email:   "admin@tienda.mx",
	})
	if err != nil {
		t.Fatalf("MintAccessToken returned error: %v", err)
	}

	other := testJWTConfig()
	other.Secret = "another-secret"
	if _, err := ParseAccessToken(other, signed); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}
