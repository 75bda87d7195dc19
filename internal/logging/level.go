package logging

import "strings"

// Level orders log severities. The zero value behaves as LevelInfo.
type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

var levelOrder = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Valid reports whether level is one of the four known levels.
func (level Level) Valid() bool {
	_, ok := levelOrder[level]
	return ok
}

func (level Level) orDefault() Level {
	if level.Valid() {
		return level
	}
	return LevelInfo
}

func (level Level) atLeast(minimum Level) bool {
	return levelOrder[level.orDefault()] >= levelOrder[minimum.orDefault()]
}

// ParseLevel accepts the level names case-insensitively, plus "warn".
func ParseLevel(value string) (Level, bool) {
	normalized := Level(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "warn" {
		return LevelWarning, true
	}
	if !normalized.Valid() {
		return "", false
	}
	return normalized, true
}
