package chat

import "time"

// ComponentData is a structured payload extracted from a workflow
// response, rendered client-side by the named component.
type ComponentData struct {
	Component string                 `json:"component"`
	Props     map[string]interface{} `json:"props"`
}

// Normalized is the canonical result of normalizing a raw workflow
// response. Content is human-readable display text; ComponentData is
// present when the response carried a structured component payload.
type Normalized struct {
	Content       string         `json:"content"`
	ComponentData *ComponentData `json:"componentData,omitempty"`
	IsFallback    bool           `json:"isFallbackMode"`
}

// Response is the canonical assistant message returned to chat callers.
type Response struct {
	Role          string         `json:"role"`
	Content       string         `json:"content"`
	Timestamp     time.Time      `json:"timestamp"`
	IsFallback    bool           `json:"isFallbackMode"`
	ComponentData *ComponentData `json:"componentData,omitempty"`
}
