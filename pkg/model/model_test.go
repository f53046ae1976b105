package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValueStringRendering(t *testing.T) {
	assert.Equal(t, "42", IntValue(42).String())
	assert.Equal(t, "true", BoolValue(true).String())
	assert.Equal(t, "alice", StringValue("alice").String())
}

func TestMetadataCloneIsIndependent(t *testing.T) {
	m := Metadata{
		Namespace: Namespace{Deleted: false, Version: 1, Created: time.Unix(0, 0)},
		Fields:    map[string]Value{"name": StringValue("Alice")},
	}
	clone := m.Clone()
	clone.Fields["name"] = StringValue("Bob")

	assert.Equal(t, "Alice", m.Fields["name"].Str)
	assert.Equal(t, "Bob", clone.Fields["name"].Str)
}
