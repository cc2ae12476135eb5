package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier verifies HS256 tokens signed with a shared secret, for
// deployments that do not use Firebase.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// profileClaims are the registered claims plus the OpenID profile fields.
type profileClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
}

// NewJWTVerifier returns a verifier for secret. A non-empty issuer must match
// the iss claim.
func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}, nil
}

// VerifyToken parses and validates a signed token. The subject becomes the
// user ID.
func (v *JWTVerifier) VerifyToken(ctx context.Context, tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var pc profileClaims
	_, err := jwt.ParseWithClaims(tokenString, &pc, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	if pc.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &UserClaims{
		UID:         pc.Subject,
		Email:       pc.Email,
		DisplayName: pc.Name,
		Picture:     pc.Picture,
		Verified:    pc.EmailVerified,
		Provider:    "jwt",
	}, nil
}

// SignToken issues a token for claims valid for ttl. It is used by tests and
// local tooling.
func (v *JWTVerifier) SignToken(claims UserClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, profileClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.UID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:         claims.Email,
		EmailVerified: claims.Verified,
		Name:          claims.DisplayName,
		Picture:       claims.Picture,
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
