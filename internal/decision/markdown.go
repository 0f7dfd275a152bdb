package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a decision Result as a Markdown string.
func RenderMarkdown(result *Result) string {
	var sb strings.Builder

	// Verdict header
	sb.WriteString("# Model Decision Report\n\n")
	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", result.Verdict))
	sb.WriteString(fmt.Sprintf("Model: `%s`\n\n", result.ModelID))

	// Accept criteria table
	sb.WriteString("## Accept Criteria\n\n")
	sb.WriteString("| # | Criterion | Threshold | Actual | Pass |\n")
	sb.WriteString("|---|-----------|-----------|--------|------|\n")
	for i, c := range result.AcceptCriteria {
		passStr := "PASS"
		if !c.Pass {
			passStr = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, passStr))
	}
	sb.WriteString("\n")

	// Count accept passes
	acceptPassed := 0
	for _, c := range result.AcceptCriteria {
		if c.Pass {
			acceptPassed++
		}
	}
	sb.WriteString(fmt.Sprintf("Accept criteria: %d/%d passed\n\n", acceptPassed, len(result.AcceptCriteria)))

	// Reject triggers table
	sb.WriteString("## Reject Triggers\n\n")
	sb.WriteString("| # | Trigger | Condition | Actual | Status |\n")
	sb.WriteString("|---|---------|-----------|--------|--------|\n")
	for i, c := range result.RejectTriggers {
		statusStr := "NOT TRIGGERED"
		if !c.Pass { // Pass=false means triggered
			statusStr = "TRIGGERED"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, statusStr))
	}
	sb.WriteString("\n")

	// Count reject triggers
	rejectTriggered := 0
	for _, c := range result.RejectTriggers {
		if !c.Pass {
			rejectTriggered++
		}
	}
	sb.WriteString(fmt.Sprintf("Reject triggers: %d/%d triggered\n\n", rejectTriggered, len(result.RejectTriggers)))

	// Summary
	sb.WriteString("## Summary\n\n")
	switch result.Verdict {
	case VerdictAccept:
		sb.WriteString("All accept criteria passed and no reject trigger fired.\n")
	case VerdictReject:
		sb.WriteString("Verdict is REJECT due to:\n")
		for _, c := range result.RejectTriggers {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- Reject trigger fired: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	default:
		sb.WriteString("No reject trigger fired, but some accept criteria failed; needs review:\n")
		for _, c := range result.AcceptCriteria {
			if !c.Pass {
				sb.WriteString(fmt.Sprintf("- Accept criterion failed: %s (actual: %s)\n", c.Name, c.Actual))
			}
		}
	}

	return sb.String()
}
