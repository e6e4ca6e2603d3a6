package agent

import "strings"

// Event is one entry of the agent's response stream. The agent emits richer
// structures (function calls, state deltas) but only textual content is read
// here; unknown fields are dropped during decode.
type Event struct {
	Content *Content `json:"content,omitempty"`
}

// Content holds the message parts of an event.
type Content struct {
	Parts []Part `json:"parts,omitempty"`
}

// Part is a single content part. Only text parts matter to the orchestrator.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Text concatenates all text parts across events in event order.
func Text(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Content == nil {
			continue
		}
		for _, p := range ev.Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
