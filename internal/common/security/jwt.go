package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

// MemberTokens issues and reads the bearer tokens that carry a member's
// team and handle between login and the round operations.
type MemberTokens struct {
	auth *jwtauth.JWTAuth
	exp  time.Duration
}

func NewMemberTokens(key []byte, exp time.Duration) *MemberTokens {
	return &MemberTokens{auth: jwtauth.New("HS256", key, nil), exp: exp}
}

// Auth exposes the underlying verifier for jwtauth middleware.
func (m *MemberTokens) Auth() *jwtauth.JWTAuth {
	return m.auth
}

func (m *MemberTokens) Generate(teamID, handle string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"team_id": teamID,
		"member":  handle,
		"exp":     now.Add(m.exp).Unix(),
		"iat":     now.Unix(),
	}
	_, tokenString, err := m.auth.Encode(claims)
	return tokenString, err
}

func GetTeamIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["team_id"].(string)
	if !ok || id == "" {
		return "", errors.New("team_id claim is missing or not a string")
	}
	return id, nil
}

func GetMemberFromClaims(claims jwt.MapClaims) (string, error) {
	handle, ok := claims["member"].(string)
	if !ok || handle == "" {
		return "", errors.New("member claim is missing or not a string")
	}
	return handle, nil
}
