package middleware

import (
	"context"
	"errors"
	"net/http"
	"shuffle_arena/internal/common"
	"shuffle_arena/internal/common/security"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const (
	TeamIDCtxKey contextKey = "teamID"
	MemberCtxKey contextKey = "member"
)

// AdminSecretHeader carries the static administrative secret.
const AdminSecretHeader = "X-Admin-Secret"

// MemberAuthenticator requires a verified member token and puts its team
// and handle into the request context.
func MemberAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil || token == nil {
			msg := "member token required"
			if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
				msg = "invalid member token: " + err.Error()
			}
			common.RespondWithJSON(w, http.StatusUnauthorized, common.ErrorResponse{Error: msg, Code: "unauthorized"})
			return
		}

		teamID, err := security.GetTeamIDFromClaims(claims)
		if err != nil {
			common.RespondWithJSON(w, http.StatusUnauthorized, common.ErrorResponse{Error: "invalid token claims: " + err.Error(), Code: "unauthorized"})
			return
		}
		member, err := security.GetMemberFromClaims(claims)
		if err != nil {
			common.RespondWithJSON(w, http.StatusUnauthorized, common.ErrorResponse{Error: "invalid token claims: " + err.Error(), Code: "unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), TeamIDCtxKey, teamID)
		ctx = context.WithValue(ctx, MemberCtxKey, member)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly admits requests whose X-Admin-Secret matches the gate. A missing
// or wrong secret is an authentication failure.
func AdminOnly(gate *security.AdminGate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !gate.Allow(r.Header.Get(AdminSecretHeader)) {
				common.RespondWithJSON(w, http.StatusUnauthorized, common.ErrorResponse{Error: "valid admin secret required", Code: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func GetTeamIDFromContext(ctx context.Context) (string, bool) {
	teamID, ok := ctx.Value(TeamIDCtxKey).(string)
	return teamID, ok
}

func GetMemberFromContext(ctx context.Context) (string, bool) {
	member, ok := ctx.Value(MemberCtxKey).(string)
	return member, ok
}
