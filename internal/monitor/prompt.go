package monitor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/verdant/internal/state"
)

// monitoringInstruction is the fixed per-cycle prompt. The reply schema must
// stay in sync with extract.Report.
const monitoringInstruction = `Run the periodic monitoring check. Read the current sensor values ` +
	`(soil moisture, temperature, humidity, light) and inspect the plant camera image. ` +
	`If the readings call for it, operate the watering, climate, or lighting devices and note what you did. ` +
	`Reply with a single JSON object:
{
  "logs": ["<short log lines for each check or action>"],
  "plant_status": "<one-line assessment of plant health>",
  "growth_stage": <integer 1-5>,
  "operation": {"<device>": {"action": "<what was done>", "comment": "<why>", "severity": "info|warning|critical"}},
  "comment": "<overall remark for the grower>"
}
Include the "operation" field only for devices you actually operated.`

// handoverInstruction is sent once on a session that is about to be rotated
// out. It must not trigger device actions: the summary seeds the next
// session's context and nothing else.
const handoverInstruction = `This conversation is being archived and a fresh one will start. ` +
	`Do not read sensors or operate any device. Summarize the current plant status, growth stage, ` +
	`recent operations, and anything the next monitoring session should watch out for. ` +
	`Reply with a single JSON object using the usual fields ` +
	`(plant_status, growth_stage, operation, comment).`

// buildPrompt assembles the outbound monitoring message: the fixed
// instruction plus, when a prior snapshot exists, an advisory context block.
// The block is explicitly subordinated to live sensor readings so a stale
// snapshot cannot override what the agent sees now.
func buildPrompt(snap *state.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(monitoringInstruction)

	if snap == nil {
		return sb.String()
	}

	sb.WriteString("\n\n[Previous run context, advisory only; current sensor values take priority]\n")
	if !snap.Timestamp.IsZero() {
		fmt.Fprintf(&sb, "Recorded at: %s\n", snap.Timestamp.UTC().Format("2006-01-02 15:04 MST"))
	}
	if snap.PlantStatus != "" {
		fmt.Fprintf(&sb, "Plant status: %s\n", snap.PlantStatus)
	}
	if snap.GrowthStage != 0 {
		fmt.Fprintf(&sb, "Growth stage: %d\n", snap.GrowthStage)
	}
	devices := make([]string, 0, len(snap.LastOperation))
	for device := range snap.LastOperation {
		devices = append(devices, device)
	}
	sort.Strings(devices)
	for _, device := range devices {
		op := snap.LastOperation[device]
		fmt.Fprintf(&sb, "Last operation on %s: %s", device, op.Action)
		if op.Comment != "" {
			fmt.Fprintf(&sb, " (%s)", op.Comment)
		}
		sb.WriteString("\n")
	}
	if snap.LastComment != "" {
		fmt.Fprintf(&sb, "Previous remark: %s\n", snap.LastComment)
	}

	return sb.String()
}
