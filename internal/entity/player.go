package entity

import "time"

type Readiness string

const (
	ReadinessReady   Readiness = "ready"
	ReadinessWaiting Readiness = "waiting"
)

// PlayerColors is the palette handed out to room members, first unused color first.
var PlayerColors = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#e67e22"}

// Player is a room member. ID is the connection id assigned by the transport.
type Player struct {
	ID       string
	Name     string
	Ready    bool
	Color    string
	JoinedAt time.Time
}

func (that *Player) Readiness() Readiness {
	if that.Ready {
		return ReadinessReady
	}
	return ReadinessWaiting
}

type PlayerSnapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Status   Readiness `json:"status"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

func (that *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ID:       that.ID,
		Name:     that.Name,
		Status:   that.Readiness(),
		Color:    that.Color,
		JoinedAt: that.JoinedAt,
	}
}
