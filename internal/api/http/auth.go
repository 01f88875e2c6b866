package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"meeting-gate/internal/config"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/security"
)

type contextKey string

const claimsKey contextKey = "claims"

var errMissingToken = errors.New("authorization token is not provided")

type AuthMiddleware struct {
	tokenManager security.TokenManager
}

func NewAuthMiddleware(tm security.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{tokenManager: tm}
}

// Handler enforces the security level of the matched route. Participant
// routes need an identity token for the participant named in the path. Owner
// routes need an owner credential of the meeting named in the path.
func (a *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := ""
		if current := mux.CurrentRoute(r); current != nil {
			route = current.GetName()
		}

		var (
			claims *security.MeetingClaims
			err    error
		)
		switch config.GetSecurityLevel(route) {
		case config.SecurityPublic:
			next.ServeHTTP(w, r)
			return
		case config.SecurityParticipant:
			claims, err = a.authenticateParticipant(r)
		case config.SecuritySelfOrOwner:
			claims, err = a.authorizeSelfOrOwner(r)
		default:
			claims, err = a.authorizeOwner(r)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	})
}

func (a *AuthMiddleware) authenticateParticipant(r *http.Request) (*security.MeetingClaims, error) {
	token, ok := extractToken(r)
	if !ok {
		return nil, errMissingToken
	}
	participantID := domain.ParticipantID(mux.Vars(r)["participantID"])
	return a.tokenManager.AuthenticateParticipant(token, participantID)
}

func (a *AuthMiddleware) authorizeOwner(r *http.Request) (*security.MeetingClaims, error) {
	token, ok := extractToken(r)
	if !ok {
		return nil, errMissingToken
	}
	meetingID := domain.MeetingID(mux.Vars(r)["meetingID"])
	return a.tokenManager.AuthorizeOwner(token, meetingID)
}

// authorizeSelfOrOwner accepts the participant's own identity token or an
// owner credential. Tokens that are not identity tokens are checked as owner
// credentials.
func (a *AuthMiddleware) authorizeSelfOrOwner(r *http.Request) (*security.MeetingClaims, error) {
	claims, err := a.authenticateParticipant(r)
	if err == nil || !errors.Is(err, security.ErrInvalidToken) {
		return claims, err
	}
	return a.authorizeOwner(r)
}

func extractToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	// Remove Bearer prefix if present
	if len(header) > 7 && strings.ToUpper(header[0:7]) == "BEARER " {
		header = header[7:]
	}
	header = strings.TrimSpace(header)
	return header, header != ""
}

// ClaimsFromContext returns the claims set by the auth middleware.
func ClaimsFromContext(ctx context.Context) (*security.MeetingClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*security.MeetingClaims)
	return claims, ok
}
