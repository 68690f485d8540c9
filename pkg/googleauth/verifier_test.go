package googleauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

const testClientID = "test-client.apps.googleusercontent.com"

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("生成 RSA 密钥失败: %v", err)
	}
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims idTokenClaims) string {
	t.Helper()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("签名失败: %v", err)
	}
	return s
}

func validClaims() idTokenClaims {
	return idTokenClaims{
		Email:         "dealer@example.com",
		EmailVerified: true,
		Name:          "Dealer",
		Picture:       "https://example.com/a.png",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "google-sub-1",
			Audience:  jwtv5.ClaimStrings{testClientID},
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwtv5.NewNumericDate(time.Now()),
		},
	}
}

func TestVerify_Success(t *testing.T) {
	key := newKey(t)
	v := NewStaticVerifier(testClientID, map[string]*rsa.PublicKey{"k1": &key.PublicKey})

	id, err := v.Verify(context.Background(), signToken(t, key, "k1", validClaims()))
	if err != nil {
		t.Fatalf("Verify 应成功: %v", err)
	}
	if id.Subject != "google-sub-1" || id.Email != "dealer@example.com" {
		t.Errorf("身份字段不符: %+v", id)
	}
}

func TestVerify_WrongAudience(t *testing.T) {
	key := newKey(t)
	v := NewStaticVerifier(testClientID, map[string]*rsa.PublicKey{"k1": &key.PublicKey})

	claims := validClaims()
	claims.Audience = jwtv5.ClaimStrings{"someone-else"}
	_, err := v.Verify(context.Background(), signToken(t, key, "k1", claims))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	key := newKey(t)
	v := NewStaticVerifier(testClientID, map[string]*rsa.PublicKey{"k1": &key.PublicKey})

	claims := validClaims()
	claims.Issuer = "https://evil.example.com"
	_, err := v.Verify(context.Background(), signToken(t, key, "k1", claims))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestVerify_UnverifiedEmail(t *testing.T) {
	key := newKey(t)
	v := NewStaticVerifier(testClientID, map[string]*rsa.PublicKey{"k1": &key.PublicKey})

	claims := validClaims()
	claims.EmailVerified = false
	_, err := v.Verify(context.Background(), signToken(t, key, "k1", claims))
	if !errors.Is(err, ErrEmailNotFound) {
		t.Errorf("期望 ErrEmailNotFound，实际: %v", err)
	}
}

func TestVerify_UnknownKeyFromSignerNotInSet(t *testing.T) {
	key := newKey(t)
	other := newKey(t)
	v := NewStaticVerifier(testClientID, map[string]*rsa.PublicKey{"k1": &other.PublicKey})

	_, err := v.Verify(context.Background(), signToken(t, key, "k1", validClaims()))
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("签名与公钥不匹配时期望 ErrInvalidToken，实际: %v", err)
	}
}

func TestVerify_FetchesJWKS(t *testing.T) {
	key := newKey(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "remote",
				"n":   base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.PublicKey.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	v := NewVerifier(testClientID, srv.URL)
	if _, err := v.Verify(context.Background(), signToken(t, key, "remote", validClaims())); err != nil {
		t.Fatalf("通过 JWKS 获取公钥后应校验成功: %v", err)
	}
}
