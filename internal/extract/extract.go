// Package extract recovers a structured JSON object from the agent's raw
// response text. The agent is instructed to answer with a single JSON object,
// but in practice the text arrives with markdown fences, "thinking" preambles,
// or not as JSON at all. Extraction must never fail: anything unparseable
// degrades to {"raw_output": <text>} and is still recorded.
package extract

import (
	"encoding/json"
	"strings"
)

// RawOutputKey is the field name used for the degraded fallback result.
const RawOutputKey = "raw_output"

// Extract parses rawText into a JSON object, tolerating prose around the
// payload. The search fixes the end index at the rightmost '}' and tries
// every '{' from the left as a start index, accepting the first substring
// that parses. A preamble containing its own balanced, valid JSON-looking
// object before the real payload can therefore win the scan; that ambiguity
// is accepted rather than guessed around.
func Extract(rawText string) map[string]any {
	trimmed := strings.TrimSpace(rawText)

	// A fully fenced response is unwrapped before scanning.
	if fenced, ok := stripFence(trimmed); ok {
		if obj := tryParse(fenced); obj != nil {
			return obj
		}
	}

	end := strings.LastIndexByte(trimmed, '}')
	if end != -1 {
		search := trimmed[:end+1]
		from := 0
		for {
			rel := strings.IndexByte(search[from:], '{')
			if rel == -1 {
				break
			}
			start := from + rel
			if obj := tryParse(search[start : end+1]); obj != nil {
				return obj
			}
			from = start + 1
		}
	}

	return map[string]any{RawOutputKey: rawText}
}

// stripFence removes a ```json ... ``` (or plain ```) fence when the whole
// trimmed text is fenced. Partially fenced text is left for the brace scan.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return "", false
	}
	inner := strings.TrimSuffix(s, "```")
	inner = strings.TrimPrefix(inner, "```json")
	inner = strings.TrimPrefix(inner, "```")
	return strings.TrimSpace(inner), true
}

// tryParse returns the decoded object, or nil when s is not a JSON object.
// Arrays and scalars are rejected: the monitoring schema is object-shaped.
func tryParse(s string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}
