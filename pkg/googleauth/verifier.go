// Package googleauth 校验 Google Sign-In 颁发的 ID Token。
package googleauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("Google ID Token 无效")
	ErrEmailNotFound = errors.New("Google ID Token 缺少已验证邮箱")
)

var validIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Identity 外部身份：仅读取稳定的 subject、邮箱、显示名与头像
type Identity struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwtv5.RegisteredClaims
}

type jwks struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

// Verifier 基于 JWKS 的 ID Token 校验器，公钥缓存 cacheTTL
type Verifier struct {
	clientID   string
	jwksURL    string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

// NewVerifier 创建校验器
func NewVerifier(clientID, jwksURL string) *Verifier {
	return &Verifier{
		clientID:   clientID,
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   6 * time.Hour,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

// NewStaticVerifier 使用固定公钥集合创建校验器（测试或离线环境）
func NewStaticVerifier(clientID string, keys map[string]*rsa.PublicKey) *Verifier {
	return &Verifier{
		clientID:  clientID,
		keys:      keys,
		expiresAt: time.Now().Add(100 * 365 * 24 * time.Hour),
	}
}

// Verify 校验签名、受众、签发方与有效期，返回外部身份
func (v *Verifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	var claims idTokenClaims
	token, err := jwtv5.ParseWithClaims(rawToken, &claims, func(t *jwtv5.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		return v.publicKey(ctx, kid)
	},
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(v.clientID),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !validIssuers[claims.Issuer] {
		return nil, fmt.Errorf("%w: 签发方 %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: 缺少 sub", ErrInvalidToken)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, ErrEmailNotFound
	}

	return &Identity{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}, nil
}

func (v *Verifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := time.Now().Before(v.expiresAt)
	v.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if v.jwksURL == "" {
		return nil, fmt.Errorf("未知的 kid %q", kid)
	}
	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("未知的 kid %q", kid)
}

func (v *Verifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("获取 JWKS 失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS 接口返回状态码 %d", resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("解析 JWKS 失败: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = time.Now().Add(v.cacheTTL)
	v.mu.Unlock()
	return nil
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("解码 modulus 失败: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("解码 exponent 失败: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
