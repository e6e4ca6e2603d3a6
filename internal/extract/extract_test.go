package extract

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestExtract_PureJSON(t *testing.T) {
	got := Extract(`{"status": "ok"}`)
	want := map[string]any{"status": "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtract_MarkdownFence(t *testing.T) {
	got := Extract("```json\n{\"status\": \"ok\"}\n```")
	want := map[string]any{"status": "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtract_PlainFence(t *testing.T) {
	got := Extract("```\n{\"status\": \"ok\"}\n```")
	want := map[string]any{"status": "ok"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtract_ThinkingPreamble(t *testing.T) {
	in := "**Thinking**\nI should check.\n\n{ \"status\": \"ok\", \"comment\": \"Checked.\" }"
	got := Extract(in)
	want := map[string]any{"status": "ok", "comment": "Checked."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

// A preamble containing stray braces must not defeat the scan: the first
// start index yields invalid JSON, so the scan advances to the real payload.
func TestExtract_BracesInPreamble(t *testing.T) {
	in := "**Thinking** {note to self} ... { \"status\": \"dry\", \"growth_stage\": 3 }"
	got := Extract(in)
	if got["status"] != "dry" {
		t.Errorf("status = %v, want dry", got["status"])
	}
	if got["growth_stage"] != float64(3) {
		t.Errorf("growth_stage = %v, want 3", got["growth_stage"])
	}
}

func TestExtract_NestedObject(t *testing.T) {
	in := `prefix { "operation": { "pump": { "action": "on" } } } `
	got := Extract(in)
	op, ok := got["operation"].(map[string]any)
	if !ok {
		t.Fatalf("operation missing: %v", got)
	}
	if _, ok := op["pump"]; !ok {
		t.Errorf("pump missing: %v", op)
	}
}

func TestExtract_SuffixProse(t *testing.T) {
	in := "```json\n{\"status\": \"ok\"}\n```\nLet me know if you need anything else."
	// Not wholly fenced, so the brace scan applies.
	got := Extract(in)
	if got["status"] != "ok" {
		t.Errorf("status = %v, want ok", got["status"])
	}
}

func TestExtract_NonJSONFallsBack(t *testing.T) {
	for _, in := range []string{
		"I could not check the sensors today.",
		"",
		"   ",
		"{ broken json",
		"} backwards {",
		"[1, 2, 3]", // arrays are not accepted as the payload
	} {
		got := Extract(in)
		if len(got) != 1 {
			t.Errorf("Extract(%q) = %v, want single raw_output field", in, got)
			continue
		}
		if got[RawOutputKey] != in {
			t.Errorf("Extract(%q)[raw_output] = %v", in, got[RawOutputKey])
		}
	}
}

// Round-trip property: any well-formed object survives arbitrary wrapping.
func TestExtract_RoundTrip(t *testing.T) {
	obj := map[string]any{
		"plant_status": "healthy",
		"growth_stage": float64(2),
		"comment":      "all good",
	}
	payload, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	wrappers := []struct {
		prefix, suffix string
	}{
		{"", ""},
		{"Here is the result:\n", ""},
		{"**Thought** {hm}\n", "\nBye."},
		{"```json\n", "\n```"},
	}
	for _, w := range wrappers {
		in := w.prefix + string(payload) + w.suffix
		got := Extract(in)
		if !reflect.DeepEqual(got, obj) {
			t.Errorf("wrap(%q, %q): Extract = %v, want %v", w.prefix, w.suffix, got, obj)
		}
	}
}

func TestReportFrom_FullResult(t *testing.T) {
	got := Extract(`{
		"logs": ["checked soil", "adjusted fan"],
		"plant_status": "healthy",
		"growth_stage": 4,
		"operation": {
			"watering": {"action": "on for 30s", "comment": "soil dry", "severity": "info"},
			"fan": {"action": "speed up", "comment": "humidity high", "severity": "warning"}
		},
		"comment": "Stable overnight."
	}`)
	r := ReportFrom(got)

	if r.PlantStatus != "healthy" {
		t.Errorf("PlantStatus = %q", r.PlantStatus)
	}
	if r.GrowthStage != 4 {
		t.Errorf("GrowthStage = %d, want 4", r.GrowthStage)
	}
	if len(r.Logs) != 2 {
		t.Errorf("Logs = %v, want 2 entries", r.Logs)
	}
	if r.Operations["watering"].Severity != "info" {
		t.Errorf("watering severity = %q", r.Operations["watering"].Severity)
	}
	if r.Operations["fan"].Action != "speed up" {
		t.Errorf("fan action = %q", r.Operations["fan"].Action)
	}
	if !r.HasStatus() {
		t.Error("HasStatus = false, want true")
	}
}

func TestReportFrom_LenientShapes(t *testing.T) {
	r := ReportFrom(map[string]any{
		"growth_stage": "7",              // quoted and out of range, passed through
		"operation":    map[string]any{"pump": "on"}, // detail not an object
		"logs":         []any{"ok", 42},  // non-string entry skipped
	})

	if r.GrowthStage != 7 {
		t.Errorf("GrowthStage = %d, want 7 (unvalidated passthrough)", r.GrowthStage)
	}
	if _, ok := r.Operations["pump"]; !ok {
		t.Error("malformed operation entry dropped, want key preserved")
	}
	if len(r.Logs) != 1 || r.Logs[0] != "ok" {
		t.Errorf("Logs = %v, want [ok]", r.Logs)
	}
	if !r.HasStatus() {
		t.Error("HasStatus = false, want true")
	}
}

func TestReportFrom_RawOutput(t *testing.T) {
	r := ReportFrom(map[string]any{RawOutputKey: "no dice"})
	if r.HasStatus() {
		t.Error("HasStatus = true for raw_output fallback, want false")
	}
}

func TestReportFrom_CommentOnly(t *testing.T) {
	r := ReportFrom(map[string]any{"comment": "sensors unreachable"})
	if !r.HasStatus() {
		t.Error("HasStatus = false for comment-only result, want true")
	}
	if r.Comment != "sensors unreachable" {
		t.Errorf("Comment = %q", r.Comment)
	}
}

func TestExtract_LargeThinkingBlock(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("reasoning step {with braces} and more text\n")
	}
	sb.WriteString(`{"plant_status": "wilting", "growth_stage": 1}`)

	got := Extract(sb.String())
	if got["plant_status"] != "wilting" {
		t.Errorf("plant_status = %v, want wilting", got["plant_status"])
	}
}
