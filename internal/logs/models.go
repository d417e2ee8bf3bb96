package logs

import (
	"time"
)

// Syslog-style severity levels, highest priority first.
const (
	LevelEmergency = "emergency"
	LevelAlert     = "alert"
	LevelCritical  = "critical"
	LevelError     = "error"
	LevelWarning   = "warning"
	LevelNotice    = "notice"
	LevelInfo      = "info"
	LevelDebug     = "debug"
)

const (
	SourceSyslog      = "syslog"
	SourceJournald    = "journald"
	SourceNginx       = "nginx"
	SourceApache      = "apache"
	SourceApplication = "application"
	SourceCustom      = "custom"
)

// Entry is one structured log line. Environment is a point-in-time copy from
// the owning agent, stamped at write time and never re-resolved.
type Entry struct {
	ID              int64
	AgentID         int64
	Timestamp       time.Time
	Level           string
	Message         string
	Source          string
	Facility        string
	Hostname        string
	ProcessName     string
	ProcessID       *int
	Environment     string
	Tags            map[string]interface{}
	Metadata        map[string]interface{}
	ElasticsearchID string
	CreatedAt       time.Time

	// AgentName is carried for the search document; it is not a column.
	AgentName string
}

// SetID records the durable id assigned on insert.
func (e *Entry) SetID(id int64) {
	e.ID = id
}

var levelPriorities = map[string]int{
	LevelEmergency: 8,
	LevelAlert:     7,
	LevelCritical:  6,
	LevelError:     5,
	LevelWarning:   4,
	LevelNotice:    3,
	LevelInfo:      2,
	LevelDebug:     1,
}

// LevelPriority returns the numeric priority of a severity level, 8 for
// emergency down to 1 for debug, or 0 for an unknown level.
func LevelPriority(level string) int {
	return levelPriorities[level]
}

func ValidLevel(level string) bool {
	_, ok := levelPriorities[level]
	return ok
}

func ValidSource(source string) bool {
	switch source {
	case SourceSyslog, SourceJournald, SourceNginx, SourceApache, SourceApplication, SourceCustom:
		return true
	}
	return false
}
