package chat

import (
	"testing"

	"support-chat-service/internal/model"

	"github.com/stretchr/testify/assert"
)

func msg(role, content string) model.Message {
	return model.Message{Role: role, Content: content}
}

func TestExtractContextNoHistoryIsIdentity(t *testing.T) {
	enriched, hints := ExtractContext(nil, "hello", false)

	assert.Equal(t, "hello", enriched)
	assert.Empty(t, hints.PartNumbers)
	assert.Empty(t, hints.VehicleModels)
	assert.Empty(t, hints.ProductTypes)
}

func TestExtractContextPartNumbers(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "Do you stock part AB1234 for my truck?"),
	}

	_, hints := ExtractContext(history, "what about XY99Z?", false)

	assert.Contains(t, hints.PartNumbers, "AB1234")
	assert.Contains(t, hints.PartNumbers, "XY99Z")
}

func TestExtractContextPartNumbersRequireLetterAndDigit(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "Codes: 12345 and ABCDE and AB123"),
	}

	_, hints := ExtractContext(history, "", false)

	assert.Equal(t, []string{"AB123"}, hints.PartNumbers)
}

func TestExtractContextVehicleModels(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "I drive a peterbilt 379"),
		msg(model.MessageRoleAssistant, "The 579 Peterbilt uses a different bracket."),
	}

	_, hints := ExtractContext(history, "", false)

	assert.Contains(t, hints.VehicleModels, "Peterbilt 379")
	assert.Contains(t, hints.VehicleModels, "Peterbilt 579")
}

func TestExtractContextSystemMessagesIgnored(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleSystem, "internal directive mentioning KW900X part"),
	}

	_, hints := ExtractContext(history, "hi", false)

	assert.Empty(t, hints.PartNumbers)
}

func TestExtractContextHintClausePrefixed(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "Need brake pads for a kenworth 680, part BP5501"),
	}

	enriched, _ := ExtractContext(history, "Is it compatible with my setup and what would shipping cost be?", false)

	assert.Contains(t, enriched, "Regarding ")
	assert.Contains(t, enriched, "part numbers: BP5501")
	assert.Contains(t, enriched, "vehicles: Kenworth 680")
	assert.Contains(t, enriched, "Is it compatible with my setup and what would shipping cost be?")
}

func TestExtractContextContinuityForShortMessage(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "How long is the warranty on alternators?"),
		msg(model.MessageRoleAssistant, "Alternators carry a two year warranty."),
	}

	enriched, _ := ExtractContext(history, "and starters?", false)

	assert.Contains(t, enriched, "Context from earlier in this conversation")
	assert.Contains(t, enriched, "How long is the warranty on alternators?")
	assert.Contains(t, enriched, "Alternators carry a two year warranty.")
}

func TestExtractContextContinuityForcedAfterFallback(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "Tell me everything about hydraulic pump sizing for my rig please?"),
	}
	longQuestion := "Given the fallback, can you answer my earlier question about hydraulic pump sizing again?"

	enriched, _ := ExtractContext(history, longQuestion, true)

	assert.Contains(t, enriched, "Context from earlier in this conversation")
}

func TestExtractContextNoContinuityForLongQuestion(t *testing.T) {
	history := []model.Message{
		msg(model.MessageRoleUser, "hello there"),
	}
	longQuestion := "Can you walk me through the full return policy for defective electrical parts?"

	enriched, _ := ExtractContext(history, longQuestion, false)

	assert.NotContains(t, enriched, "Context from earlier in this conversation")
}

func TestTopicProductsTopThreeByFrequency(t *testing.T) {
	window := []model.Message{
		msg(model.MessageRoleUser, "alternator alternator alternator starter starter radiator gasket"),
	}

	topics := topicProducts(window)

	assert.Equal(t, []string{"alternator", "starter", "gasket"}, topics)
}

func TestRecentWindowBounded(t *testing.T) {
	var history []model.Message
	for i := 0; i < 10; i++ {
		history = append(history, msg(model.MessageRoleUser, "turn"))
	}

	window := recentWindow(history)

	assert.Len(t, window, historyWindow)
}
