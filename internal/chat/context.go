package chat

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"support-chat-service/internal/model"
)

// historyWindow bounds how many recent turns are examined.
const historyWindow = 6

// shortMessageLen is the length below which a message is assumed to lean
// on earlier turns for its meaning.
const shortMessageLen = 40

// EntityHints are structured entities pulled from the conversation,
// forwarded to the workflow alongside the derived context string.
type EntityHints struct {
	PartNumbers   []string `json:"partNumbers"`
	VehicleModels []string `json:"vehicleModels"`
	ProductTypes  []string `json:"productTypes"`
}

// stopWords excludes interrogatives and determiners from topic counting.
var stopWords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "whose": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"with": true, "from": true, "have": true, "will": true, "would": true,
	"could": true, "should": true, "your": true, "yours": true, "their": true,
	"them": true, "they": true, "about": true, "does": true, "please": true,
	"need": true, "want": true, "know": true, "tell": true, "some": true,
	"much": true, "many": true, "also": true, "just": true, "like": true,
}

var (
	wordPattern = regexp.MustCompile(`[a-z]{4,}`)
	// Part numbers: 5-10 upper-case letters and digits. Requiring at least
	// one of each keeps plain words and bare numbers out.
	partNumberPattern = regexp.MustCompile(`\b[A-Z0-9]{5,10}\b`)
	hasLetterPattern  = regexp.MustCompile(`[A-Z]`)
	hasDigitPattern   = regexp.MustCompile(`[0-9]`)
)

// vehicleModelPattern matches a 3-digit model number adjacent to a known
// manufacturer name, in either order.
var vehicleModelPattern = regexp.MustCompile(
	`(?i)\b(?:(peterbilt|kenworth|freightliner|volvo|mack|international|sterling)\s+(\d{3})|(\d{3})\s+(peterbilt|kenworth|freightliner|volvo|mack|international|sterling))\b`)

// ExtractContext derives the auxiliary context string and entity hints
// for a new user message from the recent conversation history.
// retryAfterFallback is set by the caller on the turn following a
// degraded reply, forcing the continuity clause so the workflow can
// recover the topic. This function never fails; with no history and no
// matches the message comes back unmodified.
func ExtractContext(history []model.Message, message string, retryAfterFallback bool) (string, EntityHints) {
	window := recentWindow(history)

	hints := EntityHints{
		ProductTypes:  topicProducts(window),
		PartNumbers:   extractPartNumbers(window, message),
		VehicleModels: extractVehicleModels(window, message),
	}

	result := message

	if clause := hintClause(hints); clause != "" {
		result = clause + ", " + result
	}

	needsContinuity := len(message) < shortMessageLen || !strings.Contains(message, "?")
	if (needsContinuity || retryAfterFallback) && len(window) > 0 {
		if cont := continuityClause(window); cont != "" {
			result = cont + " " + result
		}
	}

	return result, hints
}

// recentWindow returns the last historyWindow non-system messages.
func recentWindow(history []model.Message) []model.Message {
	var window []model.Message
	for _, msg := range history {
		if msg.Role == model.MessageRoleSystem {
			continue
		}
		window = append(window, msg)
	}
	if len(window) > historyWindow {
		window = window[len(window)-historyWindow:]
	}
	return window
}

// topicProducts picks the 3 most frequent meaningful tokens across the
// window as the likely product topics.
func topicProducts(window []model.Message) []string {
	counts := map[string]int{}
	for _, msg := range window {
		for _, word := range wordPattern.FindAllString(strings.ToLower(msg.Content), -1) {
			if stopWords[word] {
				continue
			}
			counts[word]++
		}
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > 3 {
		words = words[:3]
	}
	return words
}

func extractPartNumbers(window []model.Message, message string) []string {
	seen := map[string]bool{}
	var parts []string

	scan := func(text string) {
		for _, match := range partNumberPattern.FindAllString(text, -1) {
			if !hasLetterPattern.MatchString(match) || !hasDigitPattern.MatchString(match) {
				continue
			}
			if !seen[match] {
				seen[match] = true
				parts = append(parts, match)
			}
		}
	}

	for _, msg := range window {
		scan(msg.Content)
	}
	scan(message)
	return parts
}

func extractVehicleModels(window []model.Message, message string) []string {
	seen := map[string]bool{}
	var models []string

	scan := func(text string) {
		for _, groups := range vehicleModelPattern.FindAllStringSubmatch(text, -1) {
			make_, number := groups[1], groups[2]
			if make_ == "" {
				number, make_ = groups[3], groups[4]
			}
			normalized := strings.ToUpper(make_[:1]) + strings.ToLower(make_[1:]) + " " + number
			if !seen[normalized] {
				seen[normalized] = true
				models = append(models, normalized)
			}
		}
	}

	for _, msg := range window {
		scan(msg.Content)
	}
	scan(message)
	return models
}

// hintClause names the detected topics, part numbers and vehicles so the
// workflow keeps continuity even when the message itself is vague.
func hintClause(hints EntityHints) string {
	var pieces []string
	if len(hints.ProductTypes) > 0 {
		pieces = append(pieces, "products: "+strings.Join(hints.ProductTypes, ", "))
	}
	if len(hints.PartNumbers) > 0 {
		pieces = append(pieces, "part numbers: "+strings.Join(hints.PartNumbers, ", "))
	}
	if len(hints.VehicleModels) > 0 {
		pieces = append(pieces, "vehicles: "+strings.Join(hints.VehicleModels, ", "))
	}
	if len(pieces) == 0 {
		return ""
	}
	return "Regarding " + strings.Join(pieces, "; ")
}

// continuityClause splices in the literal text of the last couple of
// user messages and the last assistant reply.
func continuityClause(window []model.Message) string {
	var userMsgs []string
	lastAssistant := ""

	for i := len(window) - 1; i >= 0; i-- {
		msg := window[i]
		switch msg.Role {
		case model.MessageRoleUser:
			if len(userMsgs) < 2 {
				userMsgs = append([]string{msg.Content}, userMsgs...)
			}
		case model.MessageRoleAssistant:
			if lastAssistant == "" {
				lastAssistant = msg.Content
			}
		}
	}

	if len(userMsgs) == 0 && lastAssistant == "" {
		return ""
	}

	var parts []string
	if len(userMsgs) > 0 {
		parts = append(parts, fmt.Sprintf("The user previously asked: %q.", strings.Join(userMsgs, " / ")))
	}
	if lastAssistant != "" {
		parts = append(parts, fmt.Sprintf("The previous reply was: %q.", lastAssistant))
	}
	return "(Context from earlier in this conversation: " + strings.Join(parts, " ") + ")"
}
