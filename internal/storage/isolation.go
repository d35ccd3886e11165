package storage

import "database/sql"

// IsolationLevel is the concurrency guarantee requested for a storage transaction.
type IsolationLevel int

const (
	ReadCommitted IsolationLevel = iota
	RepeatableRead
	Serializable
)

// ParseIsolationLevel maps the configured isolation string to a level.
// Anything unrecognised falls back to ReadCommitted.
func ParseIsolationLevel(s string) IsolationLevel {
	switch s {
	case "Serializable":
		return Serializable
	case "Repeatable Read":
		return RepeatableRead
	case "Read Committed":
		return ReadCommitted
	default:
		return ReadCommitted
	}
}

func (l IsolationLevel) String() string {
	switch l {
	case Serializable:
		return "Serializable"
	case RepeatableRead:
		return "RepeatableRead"
	default:
		return "ReadCommitted"
	}
}

// SQL returns the database/sql equivalent of l.
func (l IsolationLevel) SQL() sql.IsolationLevel {
	switch l {
	case Serializable:
		return sql.LevelSerializable
	case RepeatableRead:
		return sql.LevelRepeatableRead
	default:
		return sql.LevelReadCommitted
	}
}
