package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeSeedsPreservesFirstSeenOrder(t *testing.T) {
	out := dedupeSeeds([]string{"a", "b", "a", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

func TestDedupeSeedsDropsEmptyStrings(t *testing.T) {
	out := dedupeSeeds([]string{"", "a", "", "b"})
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestDedupeSeedsEmptyInput(t *testing.T) {
	out := dedupeSeeds(nil)
	assert.Empty(t, out)
}
