package chat

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// maxIterationsSentinel is emitted verbatim by the workflow engine when
	// an agent run hits its iteration cap. The surrounding payload is known
	// not to be well-formed, so it short-circuits all JSON parsing.
	maxIterationsSentinel = "Agent stopped due to max iterations."

	maxIterationsApology = "I'm sorry, that question was more complex than I could work through in one pass. Please try asking it in smaller parts."

	// legacyWrapperKey marks the historical webhook response shape still
	// produced by older workflow versions.
	legacyWrapperKey = "RESPONSE FROM WEBHOOK SUCCEEDED"

	// Scanning caps so malformed input cannot cause unbounded work.
	maxScanTextLen = 100000
	maxJSONSpanLen = 50000

	maxNormalizeDepth = 6
)

// Known component kinds.
const (
	ComponentSimpleText   = "SimpleText"
	ComponentProductSpecs = "ProductSpecs"
)

// textFieldPriority is the order in which wrapper fields are probed for
// the real payload at each nesting level.
var textFieldPriority = []string{"output", "response", "message", "content"}

// payloadKind is the closed set of shapes a workflow response can take.
type payloadKind int

const (
	payloadUnknown payloadKind = iota
	payloadString
	payloadArray
	payloadLegacyWrapper
	payloadObject
)

// Normalize takes the raw body returned by the AI workflow and produces
// the canonical display text plus optional component payload. It never
// fails: when nothing can be extracted the result has empty content and
// the caller decides how to proceed. Synthesizing fallback text is the
// fallback policy's job, not the normalizer's.
func Normalize(raw []byte) Normalized {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		// Not JSON at all; treat the body as plain text.
		return normalizeText(string(raw))
	}
	return normalizeValue(v, 0)
}

// classify resolves a decoded payload to one of the known shape variants
// before extraction, so each shape's handling stays independently testable.
func classify(v interface{}) payloadKind {
	switch t := v.(type) {
	case string:
		return payloadString
	case []interface{}:
		return payloadArray
	case map[string]interface{}:
		if legacyWrapperBody(t) != nil {
			return payloadLegacyWrapper
		}
		return payloadObject
	default:
		return payloadUnknown
	}
}

// legacyWrapperBody digs out the wrapped array from the historical
// response.body["RESPONSE FROM WEBHOOK SUCCEEDED"] shape, or nil.
func legacyWrapperBody(obj map[string]interface{}) []interface{} {
	resp, ok := obj["response"].(map[string]interface{})
	if !ok {
		return nil
	}
	body, ok := resp["body"].(map[string]interface{})
	if !ok {
		return nil
	}
	wrapped, ok := body[legacyWrapperKey].([]interface{})
	if !ok {
		return nil
	}
	return wrapped
}

func normalizeValue(v interface{}, depth int) Normalized {
	if depth > maxNormalizeDepth {
		return Normalized{}
	}

	switch classify(v) {
	case payloadString:
		return normalizeText(v.(string))

	case payloadArray:
		for _, item := range v.([]interface{}) {
			if r := normalizeValue(item, depth+1); !r.empty() {
				return r
			}
		}
		return Normalized{}

	case payloadLegacyWrapper:
		return normalizeValue(legacyWrapperBody(v.(map[string]interface{})), depth+1)

	case payloadObject:
		obj := v.(map[string]interface{})
		for _, field := range textFieldPriority {
			inner, ok := obj[field]
			if !ok || inner == nil {
				continue
			}
			if r := normalizeValue(inner, depth+1); !r.empty() {
				return r
			}
		}
		return Normalized{}

	default:
		return Normalized{}
	}
}

func (n Normalized) empty() bool {
	return n.Content == "" && n.ComponentData == nil && !n.IsFallback
}

// normalizeText extracts display text and an optional component payload
// from a text field. A fenced ```json block wins; otherwise the first
// balanced {...} span is tried.
func normalizeText(text string) Normalized {
	trimmed := strings.TrimSpace(text)
	if trimmed == maxIterationsSentinel {
		return Normalized{Content: maxIterationsApology, IsFallback: true}
	}
	if len(text) > maxScanTextLen {
		// Too large to scan safely; surface it as-is.
		return Normalized{Content: trimmed}
	}

	candidate, pre, found := findJSONCandidate(text)
	if !found {
		return Normalized{Content: trimmed}
	}

	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		// A JSON region was located but did not parse; the cleaned text is
		// whatever preceded it.
		return Normalized{Content: strings.TrimSpace(pre)}
	}

	component, _ := obj["component"].(string)
	props, _ := obj["props"].(map[string]interface{})
	if component == "" || props == nil {
		return Normalized{Content: strings.TrimSpace(pre)}
	}

	return buildComponent(component, props, strings.TrimSpace(pre))
}

// findJSONCandidate locates the JSON region of a text blob. It returns
// the candidate JSON string, the text preceding it, and whether a region
// was found at all. A located span that never balances (or exceeds the
// scan cap) still counts as found with an empty candidate: once a JSON
// region starts, only the text before it is displayable.
func findJSONCandidate(text string) (candidate, pre string, found bool) {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end]), text[:idx], true
		}
		// Unterminated fence: try everything after the marker.
		return strings.TrimSpace(rest), text[:idx], true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", "", false
	}

	// Bracket-depth scan that skips braces inside quoted strings, so
	// braces inside citation text do not corrupt the span.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		if i-start > maxJSONSpanLen {
			return "", text[:start], true
		}
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], text[:start], true
				}
			}
		}
	}
	return "", text[:start], true
}

// buildComponent assembles the normalized result for a structured
// component payload. Citations nested inside specs[] entries are hoisted
// into a flat props.citations array so one citation renderer can find
// them regardless of which component produced them.
func buildComponent(component string, props map[string]interface{}, pre string) Normalized {
	hoistCitations(props)

	display := ""
	switch component {
	case ComponentSimpleText:
		display, _ = props["text"].(string)
	case ComponentProductSpecs:
		display = renderProductSpecs(props)
	default:
		if text, ok := props["text"].(string); ok {
			display = text
		} else if dump, err := json.Marshal(props); err == nil {
			display = string(dump)
		}
	}

	content := pre
	if content == "" {
		content = display
	}

	return Normalized{
		Content:       content,
		ComponentData: &ComponentData{Component: component, Props: props},
	}
}

// hoistCitations copies every citation found under specs[].citations
// into props.citations.
func hoistCitations(props map[string]interface{}) {
	specs, ok := props["specs"].([]interface{})
	if !ok {
		return
	}
	var flat []interface{}
	for _, raw := range specs {
		spec, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		citations, ok := spec["citations"].([]interface{})
		if !ok {
			continue
		}
		flat = append(flat, citations...)
	}
	if len(flat) > 0 {
		props["citations"] = flat
	}
}

// renderProductSpecs synthesizes display text from a ProductSpecs
// payload: introduction, one "key: value" line per spec, optional note.
func renderProductSpecs(props map[string]interface{}) string {
	var parts []string

	if intro, ok := props["introduction"].(string); ok && intro != "" {
		parts = append(parts, intro)
	}

	if specs, ok := props["specs"].([]interface{}); ok {
		var lines []string
		for _, raw := range specs {
			spec, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			key, _ := spec["key"].(string)
			value := spec["value"]
			if key == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s: %s", key, stringify(value)))
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
	}

	if note, ok := props["note"].(string); ok && note != "" {
		parts = append(parts, note)
	}

	return strings.Join(parts, "\n\n")
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; avoid trailing zeros on integers.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var pairs []string
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, stringify(t[k])))
		}
		return strings.Join(pairs, ", ")
	default:
		return fmt.Sprintf("%v", t)
	}
}
