package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"meeting-gate/internal/domain"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrWrongMeeting  = errors.New("token was issued for another meeting")
	ErrNotOwnerToken = errors.New("token does not carry the owner role")
	// ErrWrongParticipant is returned when an identity token names another participant.
	ErrWrongParticipant = errors.New("token was issued for another participant")
)

type Role string

const (
	RoleOwner Role = "owner"
	RoleGuest Role = "guest"
	// RoleIdentity marks a token that only proves who the caller is.
	RoleIdentity Role = "identity"
)

const (
	issuer           = "meeting-gate"
	audience         = "media-join"
	identityAudience = "meeting-gate-api"
)

// MeetingClaims are carried by the credential token handed to the media
// transport, and by identity tokens presented to the membership API. Identity
// tokens have no meeting and a different audience, so neither kind is
// accepted in place of the other.
type MeetingClaims struct {
	MeetingID     domain.MeetingID     `json:"meeting_id"`
	ParticipantID domain.ParticipantID `json:"participant_id"`
	Channel       string               `json:"channel"`
	Role          Role                 `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	GenerateCredential(meeting *domain.Meeting, participantID domain.ParticipantID, role Role) (*domain.Credential, error)
	ValidateToken(tokenString string) (*MeetingClaims, error)
	// AuthorizeOwner validates the token and checks it is an owner token for meetingID.
	AuthorizeOwner(tokenString string, meetingID domain.MeetingID) (*MeetingClaims, error)
	GenerateIdentity(participantID domain.ParticipantID) (string, error)
	// AuthenticateParticipant validates an identity token and checks it names participantID.
	AuthenticateParticipant(tokenString string, participantID domain.ParticipantID) (*MeetingClaims, error)
}

type tokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateCredential(meeting *domain.Meeting, participantID domain.ParticipantID, role Role) (*domain.Credential, error) {
	now := m.now()
	claims := MeetingClaims{
		MeetingID:     meeting.ID,
		ParticipantID: participantID,
		Channel:       meeting.ChannelName,
		Role:          role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(participantID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &domain.Credential{Token: signed, ChannelName: meeting.ChannelName}, nil
}

func (m *tokenManager) ValidateToken(tokenString string) (*MeetingClaims, error) {
	return m.parse(tokenString, audience)
}

func (m *tokenManager) parse(tokenString, aud string) (*MeetingClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MeetingClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(aud),
		jwt.WithTimeFunc(m.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*MeetingClaims); ok && token.Valid {
		if claims.ParticipantID == "" && claims.Subject != "" {
			claims.ParticipantID = domain.ParticipantID(claims.Subject)
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (m *tokenManager) AuthorizeOwner(tokenString string, meetingID domain.MeetingID) (*MeetingClaims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.MeetingID != meetingID {
		return nil, ErrWrongMeeting
	}
	if claims.Role != RoleOwner {
		return nil, ErrNotOwnerToken
	}
	return claims, nil
}

// GenerateIdentity signs a token proving the holder is participantID. It is
// issued out of band by whoever holds the signing secret.
func (m *tokenManager) GenerateIdentity(participantID domain.ParticipantID) (string, error) {
	now := m.now()
	claims := MeetingClaims{
		ParticipantID: participantID,
		Role:          RoleIdentity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(participantID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{identityAudience},
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *tokenManager) AuthenticateParticipant(tokenString string, participantID domain.ParticipantID) (*MeetingClaims, error) {
	claims, err := m.parse(tokenString, identityAudience)
	if err != nil {
		return nil, err
	}
	if claims.Role != RoleIdentity {
		return nil, ErrInvalidToken
	}
	if claims.ParticipantID != participantID {
		return nil, ErrWrongParticipant
	}
	return claims, nil
}
