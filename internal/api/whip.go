package api

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// whipClaims is the bearer token payload issued to a WHIP publisher on
// input registration (spec §6 "returns bearer token for WHIP"). Modeled on
// the Hasura-claims shape root server/internal/auth issues for subscriber
// access tokens, trimmed to what a WHIP session needs: which input id the
// token authorizes a publish for.
type whipClaims struct {
	jwt.RegisteredClaims
	InputID string `json:"input_id"`
}

// IssueWHIPToken signs a bearer token scoped to inputID, valid for the
// lifetime of one WHIP publishing session. The router passes the secret
// from LIVE_COMPOSITOR_WHIP_JWT_SECRET and refuses WHIP registration with a
// 500 before calling this when that secret is unset.
func IssueWHIPToken(inputID string, secret []byte) (string, error) {
	now := time.Now()
	claims := whipClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   inputID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			Issuer:    "live-compositor",
		},
		InputID: inputID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateWHIPToken parses and validates a WHIP bearer token, returning the
// input id it authorizes.
func ValidateWHIPToken(tokenStr string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &whipClaims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*whipClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.InputID, nil
}

// whipSecret reads the signing secret from the environment, generating
// nothing — an unset secret means WHIP registration is unavailable, which
// the router reports as a 500 rather than silently signing with an empty
// key.
func whipSecret() []byte {
	return []byte(os.Getenv("LIVE_COMPOSITOR_WHIP_JWT_SECRET"))
}
