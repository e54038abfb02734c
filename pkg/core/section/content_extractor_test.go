package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapMiddleLeavesShortTextUntouched(t *testing.T) {
	assert.Equal(t, "short text", capMiddle("short text", 10000))
}

func TestCapMiddleElidesLongText(t *testing.T) {
	text := make([]byte, 100)
	for i := range text {
		text[i] = 'a'
	}
	out := capMiddle(string(text), 20)
	assert.Contains(t, out, "...[elided]...")
	assert.True(t, len(out) < len(text))
}
