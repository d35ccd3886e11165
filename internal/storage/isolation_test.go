package storage

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIsolationLevel(t *testing.T) {
	tests := []struct {
		in   string
		want IsolationLevel
	}{
		{"Serializable", Serializable},
		{"Repeatable Read", RepeatableRead},
		{"Read Committed", ReadCommitted},
		{"", ReadCommitted},
		{"serializable", ReadCommitted},
		{"Snapshot", ReadCommitted},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIsolationLevel(tt.in))
		})
	}
}

func TestIsolationLevelSQL(t *testing.T) {
	assert.Equal(t, sql.LevelSerializable, Serializable.SQL())
	assert.Equal(t, sql.LevelRepeatableRead, RepeatableRead.SQL())
	assert.Equal(t, sql.LevelReadCommitted, ReadCommitted.SQL())
	assert.Equal(t, "RepeatableRead", RepeatableRead.String())
}
