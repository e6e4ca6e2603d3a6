package extract

import "strconv"

// OperationDetail describes one device operation the agent reported taking.
type OperationDetail struct {
	Action   string `json:"action"`
	Comment  string `json:"comment"`
	Severity string `json:"severity"` // info, warning, critical
}

// Report is a lenient typed view over an extracted result, used to prime the
// next run's prompt. Values are taken as-is: a growth stage outside 1..5 or
// an operation entry with missing fields is model output, not an error.
type Report struct {
	Logs        []string
	PlantStatus string
	GrowthStage int
	Operations  map[string]OperationDetail
	Comment     string

	hasStage bool
}

// ReportFrom builds a Report from an extracted object. Missing or
// wrongly-typed fields are skipped; extra fields are ignored.
func ReportFrom(obj map[string]any) Report {
	var r Report

	if v, ok := obj["plant_status"].(string); ok {
		r.PlantStatus = v
	}
	if v, ok := obj["comment"].(string); ok {
		r.Comment = v
	}
	if stage, ok := asInt(obj["growth_stage"]); ok {
		r.GrowthStage = stage
		r.hasStage = true
	}
	if logs, ok := obj["logs"].([]any); ok {
		for _, l := range logs {
			if s, ok := l.(string); ok {
				r.Logs = append(r.Logs, s)
			}
		}
	}
	if ops, ok := obj["operation"].(map[string]any); ok {
		r.Operations = make(map[string]OperationDetail, len(ops))
		for name, raw := range ops {
			detail, ok := raw.(map[string]any)
			if !ok {
				// Keep the key so the context snapshot records that the
				// device was touched, even if the detail shape is off.
				r.Operations[name] = OperationDetail{}
				continue
			}
			var d OperationDetail
			if s, ok := detail["action"].(string); ok {
				d.Action = s
			}
			if s, ok := detail["comment"].(string); ok {
				d.Comment = s
			}
			if s, ok := detail["severity"].(string); ok {
				d.Severity = s
			}
			r.Operations[name] = d
		}
	}

	return r
}

// HasStatus reports whether the result carried any recognizable monitoring
// field. Only such results overwrite the context snapshot; a raw_output
// fallback never does.
func (r Report) HasStatus() bool {
	return r.PlantStatus != "" || r.hasStage || len(r.Operations) > 0 || r.Comment != ""
}

// asInt accepts JSON numbers and numeric strings. The model occasionally
// quotes the stage.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
