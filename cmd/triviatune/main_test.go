package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hxnx/triviatune/internal/profile"
)

func TestResolveCommandUsesProfileHotkeys(t *testing.T) {
	hotkeys := map[string]string{
		"j": "1",
		"k": "2",
		"x": "pause",
	}

	assert.Equal(t, "1", resolveCommand(hotkeys, "j"))
	assert.Equal(t, "2", resolveCommand(hotkeys, "k"))
	assert.Equal(t, "pause", resolveCommand(hotkeys, "x"))

	// Unmapped input passes through.
	assert.Equal(t, "3", resolveCommand(hotkeys, "3"))
	assert.Equal(t, "quit", resolveCommand(hotkeys, "quit"))
}

func TestResolveCommandDefaultProfileIsIdentity(t *testing.T) {
	p := profile.New("default")

	for _, key := range []string{"1", "2", "3", "4"} {
		assert.Equal(t, key, resolveCommand(p.Hotkeys, key))
	}
}
