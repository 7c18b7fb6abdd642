package domain

import (
	"fmt"
	"strings"
)

// Level classifies the severity of a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelAlert Level = "alert"
)

// Notice is the message relayed between processes and delivered to
// subscribers. An empty Level counts as LevelInfo.
type Notice struct {
	Title string `json:"title" mapstructure:"title"`
	Body  string `json:"body,omitempty" mapstructure:"body"`
	Level Level  `json:"level,omitempty" mapstructure:"level"`
}

// Validate reports whether the notice is publishable.
func (n Notice) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return ErrEmptyTitle
	}
	switch n.Level {
	case "", LevelInfo, LevelWarn, LevelAlert:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLevel, n.Level)
	}
}

// Severity returns the effective level, mapping the empty string to
// LevelInfo.
func (n Notice) Severity() Level {
	if n.Level == "" {
		return LevelInfo
	}
	return n.Level
}
