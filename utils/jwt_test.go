package utils

import (
	"errors"
	"testing"
	"time"

	"webpconv/models"
)

var testSecret = []byte("test-secret-key-for-jwt-signing-at-least-32-bytes-long")

func TestIssueAndVerifyToken(t *testing.T) {
	token, err := IssueToken("ops", "webpconv", time.Hour, testSecret)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "webpconv"})
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("Expected subject ops, got %s", claims.Subject)
	}
}

func TestVerifyTokenFailures(t *testing.T) {
	now := time.Now()
	expired, _ := CreateToken(&models.APIClaims{Subject: "a", ExpiresAt: now.Add(-time.Hour).Unix()}, testSecret)
	future, _ := CreateToken(&models.APIClaims{Subject: "a", IssuedAt: now.Add(time.Hour).Unix()}, testSecret)
	otherIssuer, _ := CreateToken(&models.APIClaims{Subject: "a", Issuer: "someone-else"}, testSecret)
	valid, _ := CreateToken(&models.APIClaims{Subject: "a"}, testSecret)

	cases := []struct {
		name   string
		token  string
		config VerifyConfig
		want   error
	}{
		{"empty", "", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"garbage", "not.a.jwt", VerifyConfig{SecretKey: testSecret}, ErrInvalidToken},
		{"no key", valid, VerifyConfig{}, ErrNoKey},
		{"wrong secret", valid, VerifyConfig{SecretKey: []byte("another-secret-of-sufficient-length-123")}, ErrInvalidSignature},
		{"expired", expired, VerifyConfig{SecretKey: testSecret}, ErrTokenExpired},
		{"issued in future", future, VerifyConfig{SecretKey: testSecret}, ErrTokenNotYetValid},
		{"wrong issuer", otherIssuer, VerifyConfig{SecretKey: testSecret, ExpectedIssuer: "webpconv"}, ErrInvalidIssuer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := VerifyToken(tc.token, tc.config)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClockSkewToleratesExpiry(t *testing.T) {
	token, _ := CreateToken(&models.APIClaims{Subject: "a", ExpiresAt: time.Now().Add(-30 * time.Second).Unix()}, testSecret)
	if _, err := VerifyToken(token, VerifyConfig{SecretKey: testSecret, ClockSkew: time.Minute}); err != nil {
		t.Errorf("Expected token within skew to pass, got %v", err)
	}
}

func TestGenerateRandomHex(t *testing.T) {
	a, err := GenerateRandomHex(16)
	if err != nil {
		t.Fatalf("GenerateRandomHex failed: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(a))
	}
	b, _ := GenerateRandomHex(16)
	if a == b {
		t.Error("Expected different values")
	}
}
