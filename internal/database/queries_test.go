package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_directChatLockKey(t *testing.T) {
	lo, hi := directChatLockKey(7, 3)
	assert.Equal(t, 3, lo, "expected lower user id first")
	assert.Equal(t, 7, hi, "expected higher user id second")

	lo2, hi2 := directChatLockKey(3, 7)
	assert.Equal(t, lo, lo2, "expected both orderings to contend on the same key")
	assert.Equal(t, hi, hi2, "expected both orderings to contend on the same key")
}
