package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Token lifetimes used when the config leaves them zero.
const (
	DefaultAccessTTL  = 24 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Token type discriminator carried in the claims, so a refresh token can
// never be presented where an access token is expected and vice versa.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// ErrInvalidToken is the single verification failure. Malformed input,
// signature mismatch, expiry, wrong issuer/audience and wrong token type
// all collapse into it so callers cannot probe which check failed.
var ErrInvalidToken = errors.New("invalid token")

// Config holds JWT configuration
type Config struct {
	SigningKey string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims represents the JWT claims for user authentication
type Claims struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	GlobalRole string `json:"global_role,omitempty"`
	TokenType  string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTUtil issues and verifies signed identity tokens. Stateless: nothing
// is persisted and nothing can be revoked before its expiry.
type JWTUtil struct {
	config *Config
}

// New creates a JWT utility with the given configuration.
func New(config *Config) *JWTUtil {
	return &JWTUtil{config: config}
}

// IssueAccessToken creates a signed access token for the user.
func (j *JWTUtil) IssueAccessToken(userID uint, email, globalRole string) (string, error) {
	ttl := j.config.AccessTTL
	if ttl == 0 {
		ttl = DefaultAccessTTL
	}
	return j.issue(userID, email, globalRole, TokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed refresh token for the user.
func (j *JWTUtil) IssueRefreshToken(userID uint, email, globalRole string) (string, error) {
	ttl := j.config.RefreshTTL
	if ttl == 0 {
		ttl = DefaultRefreshTTL
	}
	return j.issue(userID, email, globalRole, TokenTypeRefresh, ttl)
}

func (j *JWTUtil) issue(userID uint, email, globalRole, tokenType string, ttl time.Duration) (string, error) {
	if j.config == nil || j.config.SigningKey == "" {
		return "", errors.New("JWT configuration not provided")
	}
	now := time.Now()
	claims := Claims{
		UserID:     userID,
		Email:      email,
		GlobalRole: globalRole,
		TokenType:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.config.Issuer,
			Audience:  jwt.ClaimStrings{j.config.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// Verify validates signature, expiry, issuer and audience, and returns the
// embedded claims.
func (j *JWTUtil) Verify(tokenString string) (*Claims, error) {
	if j.config == nil || j.config.SigningKey == "" {
		return nil, errors.New("JWT configuration not provided")
	}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyIssuer(j.config.Issuer, j.config.Issuer != "") {
		return nil, ErrInvalidToken
	}
	if !claims.VerifyAudience(j.config.Audience, j.config.Audience != "") {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAccess verifies a token and additionally requires it to be an
// access token.
func (j *JWTUtil) VerifyAccess(tokenString string) (*Claims, error) {
	claims, err := j.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh verifies a refresh token and issues a fresh access token with
// the same payload. The refresh token itself is not rotated or
// invalidated; it stays valid until its own expiry.
func (j *JWTUtil) Refresh(refreshToken string) (string, error) {
	claims, err := j.Verify(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", ErrInvalidToken
	}
	return j.IssueAccessToken(claims.UserID, claims.Email, claims.GlobalRole)
}
