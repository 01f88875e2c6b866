package rtc

import (
	"context"
	"sync"

	"meeting-gate/internal/admission"
	"meeting-gate/internal/domain"
	"meeting-gate/internal/logger"
)

// DryRunTransport logs the handoff without touching the network.
type DryRunTransport struct{}

var _ admission.Transport = DryRunTransport{}

func (DryRunTransport) Join(ctx context.Context, cred domain.Credential) (admission.Connection, error) {
	logger.Info("Dry-run join", "component", "rtc", "channel", cred.ChannelName)
	return &dryRunConnection{channel: cred.ChannelName}, nil
}

type dryRunConnection struct {
	channel string

	mu    sync.Mutex
	muted bool
}

func (c *dryRunConnection) SetMuted(muted bool) error {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
	logger.Info("Dry-run mute", "component", "rtc", "channel", c.channel, "muted", muted)
	return nil
}

func (c *dryRunConnection) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

func (c *dryRunConnection) Leave(ctx context.Context) error {
	logger.Info("Dry-run leave", "component", "rtc", "channel", c.channel)
	return nil
}
