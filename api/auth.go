package api

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleBidder = "bidder"

	claimsKey = "claims"
)

type JWT struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func ParseAndValidateJWT(tokenString string, publicKey ed25519.PublicKey) (*JWT, error) {
	const op = "ParseJWT"
	token, err := jwt.ParseWithClaims(tokenString, &JWT{}, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%s: token is invalid", op)
	}
	claims, ok := token.Claims.(*JWT)
	if !ok {
		return nil, fmt.Errorf("%s: token claims are invalid", op)
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, fmt.Errorf("%s: subject is not a valid id, err=%w", op, err)
	}
	return claims, nil
}

// NewAccessToken 簽發 EdDSA access token
func NewAccessToken(subject uuid.UUID, role string, ttl time.Duration, privateKey ed25519.PrivateKey) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, JWT{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("fail to sign token, err=%w", err)
	}
	return signed, nil
}

// ParsePublicKey 解析 PEM 格式的 Ed25519 公鑰
func ParsePublicKey(pem []byte) (ed25519.PublicKey, error) {
	key, err := jwt.ParseEdPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("fail to parse public key, err=%w", err)
	}
	publicKey, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an ed25519 key")
	}
	return publicKey, nil
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// authenticate 驗證 Authorization header，沒有設定公鑰時直接放行
func (impl *ServerImpl) authenticate(c *gin.Context) {
	if impl.config.Auth.PublicKey == nil {
		c.Next()
		return
	}
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "missing access token"})
		return
	}
	claims, err := ParseAndValidateJWT(token, impl.config.Auth.PublicKey)
	if err != nil {
		impl.logger.Debug("Fail to parse and validate JWT", slog.Any("error", err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "invalid access token"})
		return
	}
	c.Set(claimsKey, claims)
	c.Next()
}

// requireAdmin 只允許 admin 角色，沒有設定公鑰時直接放行
func (impl *ServerImpl) requireAdmin(c *gin.Context) {
	if impl.config.Auth.PublicKey == nil {
		c.Next()
		return
	}
	claims, ok := claimsFrom(c)
	if !ok || claims.Role != RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "admin role required"})
		return
	}
	c.Next()
}

func claimsFrom(c *gin.Context) (*JWT, bool) {
	value, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*JWT)
	return claims, ok
}

// actorID 有驗證時以 token subject 為準，否則使用請求內容提供的 id
func actorID(c *gin.Context, fallback uuid.UUID) uuid.UUID {
	if claims, ok := claimsFrom(c); ok {
		return uuid.MustParse(claims.Subject)
	}
	return fallback
}
