package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func testOperator() *Operator {
	return &Operator{
		ID:       "usr-ab12cd34",
		Username: "field.tech1",
	}
}

func TestGenerateAccessToken(t *testing.T) {
	token, err := GenerateAccessToken(testOperator(), testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "usr-ab12cd34" {
		t.Errorf("Subject = %q, want usr-ab12cd34", claims.Subject)
	}
	if claims.Username != "field.tech1" {
		t.Errorf("Username = %q, want field.tech1", claims.Username)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl < 14*time.Minute || ttl > 15*time.Minute {
		t.Errorf("token TTL = %v, want ~15m", ttl)
	}
}

func TestParseToken_Rejections(t *testing.T) {
	valid, err := GenerateAccessToken(testOperator(), testSecret, 15)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	expired := signedToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-ab12cd34",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
		Username: "field.tech1",
	})
	missingSubject := signedToken(t, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Username: "field.tech1",
	})

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "completely-different-secret-value!!!"},
		{"garbage token", "not.a.jwt", testSecret},
		{"expired token", expired, testSecret},
		{"missing subject", missingSubject, testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestParseToken_RejectsUnsignedAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-ab12cd34",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none-algorithm token: %v", err)
	}

	if _, err := ParseToken(unsigned, testSecret); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("ParseToken() accepted alg=none token, error = %v", err)
	}
}

func signedToken(t *testing.T, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}
