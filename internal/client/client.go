// Package client talks to the membership HTTP API on behalf of a participant.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"meeting-gate/internal/admission"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

const serviceName = "meeting-gate"

// StatusError is a reply with an unexpected HTTP status.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s returned %d: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s returned %d", e.Op, e.Code)
}

// Client implements admission.MembershipStore over HTTP. Participant calls
// carry the identity token set by WithIdentity. Owner returns a copy that
// carries the owner credential for roster calls instead.
type Client struct {
	baseURL string
	http    *http.Client
	bearer  string
}

var (
	_ admission.MembershipStore = (*Client)(nil)
	_ admission.RosterStore     = (*Client)(nil)
)

// New creates a client for the API at baseURL. A nil httpClient uses
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// WithIdentity returns a client that proves it acts for the participant the
// identity token was issued to.
func (c *Client) WithIdentity(token string) *Client {
	identified := *c
	identified.bearer = token
	return &identified
}

// Owner returns a client authorized with the owner credential.
func (c *Client) Owner(cred domain.Credential) admission.RosterStore {
	owner := *c
	owner.bearer = cred.Token
	return &owner
}

func (c *Client) participantURL(meetingID domain.MeetingID, participantID domain.ParticipantID, suffix string) string {
	u := fmt.Sprintf("%s/api/v1/meetings/%s/participants/%s",
		c.baseURL, url.PathEscape(string(meetingID)), url.PathEscape(string(participantID)))
	if suffix != "" {
		u += "/" + suffix
	}
	return u
}

func (c *Client) CheckOwnership(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.Credential, error) {
	const op = "check ownership"
	resp, err := c.do(ctx, op, http.MethodGet, c.participantURL(meetingID, participantID, "ownership"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		// Meeting exists but the participant is not its owner, or the meeting
		// is unknown; registration tells the two apart.
		return nil, nil
	case http.StatusOK:
	default:
		return nil, statusError(op, resp)
	}

	var cred domain.Credential
	if err := decodeStrict(resp.Body, &cred); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, admission.ErrMalformedResponse, err)
	}
	if !cred.Valid() {
		return nil, fmt.Errorf("%s: %w: incomplete credential", op, admission.ErrMalformedResponse)
	}
	return &cred, nil
}

func (c *Client) RegisterPendingParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	return c.expect(ctx, "register pending participant", http.MethodPut,
		c.participantURL(meetingID, participantID, ""), http.StatusAccepted)
}

// QueryApprovalStatus returns nil when the store has no request for the
// participant. A reply of an unrecognized shape yields ErrMalformedResponse.
func (c *Client) QueryApprovalStatus(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) (*domain.StatusReport, error) {
	const op = "query approval status"
	resp, err := c.do(ctx, op, http.MethodGet, c.participantURL(meetingID, participantID, "status"))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, nil
	case http.StatusOK:
	default:
		return nil, statusError(op, resp)
	}

	var report domain.StatusReport
	if err := decodeStrict(resp.Body, &report); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, admission.ErrMalformedResponse, err)
	}
	return &report, nil
}

func (c *Client) DenyParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	return c.expect(ctx, "deny participant", http.MethodPost,
		c.participantURL(meetingID, participantID, "deny"), http.StatusNoContent)
}

func (c *Client) PromoteParticipant(ctx context.Context, participantID domain.ParticipantID, meetingID domain.MeetingID) error {
	return c.expect(ctx, "promote participant", http.MethodPost,
		c.participantURL(meetingID, participantID, "promote"), http.StatusNoContent)
}

func (c *Client) ListPendingParticipants(ctx context.Context, meetingID domain.MeetingID) ([]domain.ParticipantID, error) {
	const op = "list pending participants"
	u := fmt.Sprintf("%s/api/v1/meetings/%s/pending", c.baseURL, url.PathEscape(string(meetingID)))
	resp, err := c.do(ctx, op, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp)
	}
	roster, err := domain.DecodeRoster(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, admission.ErrMalformedResponse, err)
	}
	return roster.Participants, nil
}

func (c *Client) expect(ctx context.Context, op, method, u string, want int) error {
	resp, err := c.do(ctx, op, method, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return statusError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, op, method, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	logger.ExternalServiceCall(serviceName, op, "method", method, "url", u)
	resp, err := c.http.Do(req)
	logger.ExternalServiceResult(serviceName, op, err, "url", u)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", op, err)
	}
	return resp, nil
}

func statusError(op string, resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)
	return &StatusError{Op: op, Code: resp.StatusCode, Message: body.Error}
}

func decodeStrict(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data")
	}
	return nil
}
