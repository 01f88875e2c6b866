// Package rtc hands an admission credential to the real-time media layer.
package rtc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pion/webrtc/v4"

	"meeting-gate/internal/admission"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

const (
	contentTypeSDP = "application/sdp"
	trackID        = "audio"
	streamID       = "meeting-gate"
)

var ErrNoAnswer = errors.New("whip endpoint returned an empty answer")

// DefaultICEServers is used when no ICE servers are configured.
var DefaultICEServers = []string{"stun:stun.l.google.com:19302"}

// WHIPTransport joins a channel by publishing an Opus track to a WHIP
// endpoint. The channel name is the last path segment of the resource URL.
type WHIPTransport struct {
	endpoint   string
	iceServers []string
	client     *http.Client
}

var _ admission.Transport = (*WHIPTransport)(nil)

func NewWHIPTransport(endpoint string, iceServers []string, client *http.Client) *WHIPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &WHIPTransport{
		endpoint:   strings.TrimRight(endpoint, "/"),
		iceServers: iceServers,
		client:     client,
	}
}

func (t *WHIPTransport) configuration() webrtc.Configuration {
	if len(t.iceServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: t.iceServers}},
	}
}

// Join negotiates a send/receive audio session for cred.ChannelName. The
// credential token is presented as the bearer of the WHIP request.
func (t *WHIPTransport) Join(ctx context.Context, cred domain.Credential) (admission.Connection, error) {
	log := logger.WithComponent("rtc").With("channel", cred.ChannelName)

	pc, err := webrtc.NewPeerConnection(t.configuration())
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		trackID, streamID)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}

	transceiver, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionSendrecv,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio transceiver: %w", err)
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Info("Peer state", "peer_connection_state", s.String())
	})

	offer, err := t.offer(ctx, pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	target := t.endpoint + "/" + url.PathEscape(cred.ChannelName)
	answer, location, err := t.publish(ctx, target, cred.Token, offer)
	if err != nil {
		pc.Close()
		return nil, err
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("apply answer: %w", err)
	}

	log.Info("Joined media channel", "resource", location)
	return &whipConnection{
		pc:       pc,
		sender:   transceiver.Sender(),
		track:    track,
		resource: location,
		token:    cred.Token,
		client:   t.client,
		log:      log,
	}, nil
}

// offer creates the local offer and waits for ICE gathering, since WHIP
// carries no trickle candidates.
func (t *WHIPTransport) offer(ctx context.Context, pc *webrtc.PeerConnection) (string, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("create offer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return pc.LocalDescription().SDP, nil
}

// publish posts the offer and returns the answer SDP and the absolute
// resource URL from the Location header.
func (t *WHIPTransport) publish(ctx context.Context, target, token, offer string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(offer))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", contentTypeSDP)
	req.Header.Set("Authorization", "Bearer "+token)

	logger.ExternalServiceCall("whip", "publish", "url", target)
	resp, err := t.client.Do(req)
	logger.ExternalServiceResult("whip", "publish", err, "url", target)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("read answer: %w", err)
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("whip publish returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(body) == 0 {
		return "", "", ErrNoAnswer
	}

	location := resp.Header.Get("Location")
	if location != "" {
		base, err := url.Parse(target)
		if err != nil {
			return "", "", err
		}
		ref, err := url.Parse(location)
		if err != nil {
			return "", "", fmt.Errorf("parse location: %w", err)
		}
		location = base.ResolveReference(ref).String()
	}
	return string(body), location, nil
}

type whipConnection struct {
	pc       *webrtc.PeerConnection
	sender   *webrtc.RTPSender
	track    *webrtc.TrackLocalStaticSample
	resource string
	token    string
	client   *http.Client
	log      *slog.Logger

	mu    sync.Mutex
	muted bool
	left  bool
}

// SetMuted detaches the local track from its sender while muted.
func (c *whipConnection) SetMuted(muted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.left {
		return admission.ErrClosed
	}
	if c.muted == muted {
		return nil
	}

	var next webrtc.TrackLocal
	if !muted {
		next = c.track
	}
	if err := c.sender.ReplaceTrack(next); err != nil {
		return fmt.Errorf("replace track: %w", err)
	}
	c.muted = muted
	c.log.Debug("Mute changed", "muted", muted)
	return nil
}

func (c *whipConnection) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// Leave deletes the WHIP resource and closes the peer connection. The peer
// connection is closed even when the DELETE fails.
func (c *whipConnection) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return nil
	}
	c.left = true
	c.mu.Unlock()

	var errs []error
	if c.resource != "" {
		errs = append(errs, c.deleteResource(ctx))
	}
	if err := c.pc.Close(); err != nil {
		c.log.Error("close error", "error", err)
		errs = append(errs, err)
	} else {
		c.log.Info("closed")
	}
	return errors.Join(errs...)
}

func (c *whipConnection) deleteResource(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.resource, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	logger.ExternalServiceCall("whip", "delete", "url", c.resource)
	resp, err := c.client.Do(req)
	logger.ExternalServiceResult("whip", "delete", err, "url", c.resource)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("whip delete returned %d", resp.StatusCode)
	}
	return nil
}
