package agents

import (
	"time"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusError    = "error"
	StatusPending  = "pending"
)

const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// OnlineWindow is how recent an agent's heartbeat must be for the agent to
// count as online. Liveness is derived from last_heartbeat, never stored.
const OnlineWindow = 5 * time.Minute

type Agent struct {
	ID            int64
	Name          string
	Hostname      string
	IPAddress     string
	Environment   string
	Status        string
	LastHeartbeat *time.Time
	APIToken      string
	Version       string
	OSInfo        map[string]interface{}
	Architecture  string
	Metadata      map[string]interface{}
	ConfigOverlay map[string]interface{}
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsOnline reports whether the agent heartbeated within the online window.
func (a *Agent) IsOnline() bool {
	return a.IsOnlineAt(time.Now())
}

func (a *Agent) IsOnlineAt(now time.Time) bool {
	if a.LastHeartbeat == nil {
		return false
	}
	return now.Sub(*a.LastHeartbeat) <= OnlineWindow
}

func ValidStatus(s string) bool {
	switch s {
	case StatusActive, StatusInactive, StatusError, StatusPending:
		return true
	}
	return false
}

func ValidEnvironment(e string) bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}
