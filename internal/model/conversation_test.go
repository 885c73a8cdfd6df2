package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationTitleShortMessageUnchanged(t *testing.T) {
	assert.Equal(t, "Need a new oil filter", ConversationTitle("Need a new oil filter"))
}

func TestConversationTitleTruncatedWithEllipsis(t *testing.T) {
	long := strings.Repeat("a", 80)

	title := ConversationTitle(long)

	assert.Equal(t, strings.Repeat("a", 50)+"...", title)
}

func TestConversationTitleExactBoundary(t *testing.T) {
	exact := strings.Repeat("b", 50)

	assert.Equal(t, exact, ConversationTitle(exact))
}

func TestConversationTitleMultibyteSafe(t *testing.T) {
	long := strings.Repeat("é", 60)

	title := ConversationTitle(long)

	assert.Equal(t, strings.Repeat("é", 50)+"...", title)
}
