package domain

// Credential lets a participant join the media channel of a meeting.
// It is issued once per approved request and never changes afterwards.
type Credential struct {
	Token       string `json:"token"`
	ChannelName string `json:"channel_name"`
}

func (c *Credential) Valid() bool {
	return c != nil && c.Token != "" && c.ChannelName != ""
}
