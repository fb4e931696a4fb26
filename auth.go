package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// genToken returns a hex-encoded random string of n bytes, used for
// verification and password-reset tokens.
func genToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashPassword(p string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	return string(b), err
}

// comparePassword reports whether p matches the stored digest. A mismatch is
// a normal outcome, not an error.
func comparePassword(hash, p string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(p)) == nil
}

// Claims is the signed identity payload carried by both access and refresh
// tokens.
type Claims struct {
	Username string `json:"username"`
	UserID   string `json:"id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// signToken issues an HS256 token for the user, expiring after ttl. Expiry
// lives in the signed payload; the verifier enforces it, no external store
// is involved.
func signToken(u *User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: u.Username,
		UserID:   u.ID,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// parseToken verifies signature and expiry against the given secret and
// returns the embedded claims.
func parseToken(tokenStr string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func (a *App) issueAccessToken(u *User) (string, error) {
	return signToken(u, []byte(a.Config.JWTAccessSecret), a.Config.AccessTokenTTL)
}

func (a *App) issueRefreshToken(u *User) (string, error) {
	return signToken(u, []byte(a.Config.JWTRefreshSecret), a.Config.RefreshTokenTTL)
}

func (a *App) parseAccessToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, []byte(a.Config.JWTAccessSecret))
}

func (a *App) parseRefreshToken(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, []byte(a.Config.JWTRefreshSecret))
}
