package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

func createTestTokenService(t *testing.T, ttl time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(ttl, "test-issuer", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "RSA without keys", useRSAKeys: true, expectError: true},
		{name: "RSA with malformed keys", useRSAKeys: true, privateKey: "nope", publicKey: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(time.Hour, "issuer", tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestUnsubscribeTokenRoundTrip(t *testing.T) {
	svc := createTestTokenService(t, time.Hour)

	token, err := svc.GenerateUnsubscribeToken(42, "  Reader@Example.COM ")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateUnsubscribeToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.BusinessID)
	assert.Equal(t, "reader@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestUnsubscribeTokenRejections(t *testing.T) {
	svc := createTestTokenService(t, time.Hour)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateUnsubscribeToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		claims := UnsubscribeClaims{
			BusinessID: 1,
			Email:      "a@b.co",
			TokenType:  unsubscribeTokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ValidateUnsubscribeToken(signed)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "test-issuer", false, "", "", "another-secret-key-for-signing-000")
		require.NoError(t, err)
		token, err := other.GenerateUnsubscribeToken(1, "a@b.co")
		require.NoError(t, err)

		_, err = svc.ValidateUnsubscribeToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "someone-else", false, "", "", testSecret)
		require.NoError(t, err)
		token, err := other.GenerateUnsubscribeToken(1, "a@b.co")
		require.NoError(t, err)

		_, err = svc.ValidateUnsubscribeToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong token type", func(t *testing.T) {
		claims := UnsubscribeClaims{
			BusinessID: 1,
			Email:      "a@b.co",
			TokenType:  "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = svc.ValidateUnsubscribeToken(signed)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestUnsubscribeTokenRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	svc, err := NewTokenService(time.Hour, "rsa-issuer", true, string(privPEM), string(pubPEM), "")
	require.NoError(t, err)

	token, err := svc.GenerateUnsubscribeToken(7, "x@y.io")
	require.NoError(t, err)

	claims, err := svc.ValidateUnsubscribeToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.BusinessID)
}
