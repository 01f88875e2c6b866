package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-gate/internal/domain"
	"meeting-gate/internal/repository/memory"
	"meeting-gate/internal/security"
	"meeting-gate/internal/service"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type apiFixture struct {
	router http.Handler
	svc    service.MembershipService
	tokens security.TokenManager
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memory.NewStore(nil)
	tokens := security.NewTokenManager(testSecret, time.Hour)
	svc := service.NewMembershipService(store, store, tokens)
	_, err := svc.EnsureMeeting(context.Background(), "m1", "owner")
	require.NoError(t, err)
	_, err = svc.EnsureMeeting(context.Background(), "m2", "other")
	require.NoError(t, err)
	return &apiFixture{router: NewRouter(svc, tokens, nil), svc: svc, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) ownerToken(t *testing.T, meetingID domain.MeetingID, ownerID domain.ParticipantID) string {
	t.Helper()
	cred, err := f.svc.CheckOwnership(context.Background(), ownerID, meetingID)
	require.NoError(t, err)
	return cred.Token
}

func (f *apiFixture) identity(t *testing.T, participantID domain.ParticipantID) string {
	t.Helper()
	token, err := f.tokens.GenerateIdentity(participantID)
	require.NoError(t, err)
	return token
}

func TestCheckOwnership(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/owner/ownership", f.identity(t, "owner"))
	require.Equal(t, http.StatusOK, rec.Code)
	var cred domain.Credential
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cred))
	assert.True(t, cred.Valid())

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/u1/ownership", f.identity(t, "u1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/bad!id/ownership", f.identity(t, "bad!id"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParticipantRoutesRequireIdentity(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RegisterPendingParticipant(context.Background(), "victim", "m1"))
	ownerCred := f.ownerToken(t, "m1", "owner")

	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{"NoToken", "", http.StatusUnauthorized},
		{"Garbage", "not-a-jwt", http.StatusUnauthorized},
		{"OtherParticipant", f.identity(t, "mallory"), http.StatusForbidden},
		{"MediaCredential", ownerCred, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/owner/ownership", tc.bearer)
			assert.Equal(t, tc.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "channel_name")

			rec = f.do(t, http.MethodPut, "/api/v1/meetings/m1/participants/victim", tc.bearer)
			assert.Equal(t, tc.want, rec.Code)
			rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/victim/status", tc.bearer)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAnonymousCallerCannotActAsOwner(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RegisterPendingParticipant(context.Background(), "victim", "m1"))
	mallory := f.identity(t, "mallory")

	// No owner credential can be obtained without the owner's identity.
	rec := f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/owner/ownership", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/owner/ownership", mallory)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An identity token is not an owner credential.
	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/victim/promote", f.identity(t, "owner"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/pending", f.identity(t, "owner"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Nobody else can deny the victim's request.
	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/victim/deny", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/victim/deny", mallory)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/victim/deny", f.ownerToken(t, "m2", "other"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	report, err := f.svc.QueryApprovalStatus(context.Background(), "victim", "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, report.Status)
}

func TestAdmissionFlow(t *testing.T) {
	f := newFixture(t)
	owner := f.ownerToken(t, "m1", "owner")
	u1, u2 := f.identity(t, "u1"), f.identity(t, "u2")

	rec := f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/u1/status", u1)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/meetings/m1/participants/u1", u1)
	require.Equal(t, http.StatusAccepted, rec.Code)
	rec = f.do(t, http.MethodPut, "/api/v1/meetings/m1/participants/u2", u2)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/u1/status", u1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"pending"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/pending", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	roster, err := domain.DecodeRoster(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"u1", "u2"}, roster.Participants)

	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u1/promote", owner)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/u1/status", u1)
	require.Equal(t, http.StatusOK, rec.Code)
	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, domain.RequestStatusApproved, status.Status)
	assert.True(t, status.Credential.Valid())

	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u2/deny", owner)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/participants/u2/status", u2)
	assert.JSONEq(t, `{"status":"denied"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/meetings/m1/pending", owner)
	assert.JSONEq(t, `{"participants":[]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u1/deny", owner)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOwnerRoutesRequireOwnerToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RegisterPendingParticipant(context.Background(), "u1", "m1"))
	require.NoError(t, f.svc.RegisterPendingParticipant(context.Background(), "u2", "m1"))
	require.NoError(t, f.svc.PromoteParticipant(context.Background(), "u2", "m1"))
	report, err := f.svc.QueryApprovalStatus(context.Background(), "u2", "m1")
	require.NoError(t, err)
	guest := report.Credential.Token
	otherOwner := f.ownerToken(t, "m2", "other")

	cases := []struct {
		name   string
		bearer string
		want   int
	}{
		{"NoToken", "", http.StatusUnauthorized},
		{"Garbage", "not-a-jwt", http.StatusUnauthorized},
		{"GuestToken", guest, http.StatusForbidden},
		{"OtherMeeting", otherOwner, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/meetings/m1/pending", tc.bearer)
			assert.Equal(t, tc.want, rec.Code)
			rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u1/promote", tc.bearer)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestDeny_SelfWithdrawal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RegisterPendingParticipant(context.Background(), "u3", "m1"))
	u3 := f.identity(t, "u3")

	rec := f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u3/deny", u3)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u3/deny", u3)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/u3/deny", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/meetings/m1/participants/nobody/deny", f.identity(t, "nobody"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	store := memory.NewStore(nil)
	tokens := security.NewTokenManager(testSecret, time.Hour)
	svc := service.NewMembershipService(store, store, tokens)

	rec := httptest.NewRecorder()
	NewRouter(svc, tokens, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := func(context.Context) error { return errors.New("db down") }
	rec = httptest.NewRecorder()
	NewRouter(svc, tokens, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(service.ErrMeetingNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(service.ErrAlreadyDecided))
	assert.Equal(t, http.StatusUnauthorized, statusFor(security.ErrExpiredToken))
	assert.Equal(t, http.StatusForbidden, statusFor(security.ErrWrongParticipant))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
