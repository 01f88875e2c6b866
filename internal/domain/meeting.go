package domain

import "time"

type Meeting struct {
	ID          MeetingID     `json:"id"`
	OwnerID     ParticipantID `json:"owner_id"`
	ChannelName string        `json:"channel_name"`
	CreatedOn   time.Time     `json:"created_on"`
}

func (m *Meeting) IsOwner(id ParticipantID) bool {
	return m != nil && m.OwnerID == id
}
