package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the run summary as Markdown.
func RenderMarkdown(s *Summary) string {
	var sb strings.Builder

	sb.WriteString("# Trading Activity Snapshot\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", s.RunID))

	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| reporting_start_date | %s |\n", s.StartDate))
	sb.WriteString(fmt.Sprintf("| reporting_end_date | %s |\n", s.EndDate))
	sb.WriteString(fmt.Sprintf("| fixed_month_window | %s |\n", s.FixedMonth))
	sb.WriteString(fmt.Sprintf("| rolling_window_days | %d |\n", s.WindowDays))
	sb.WriteString("\n")

	sb.WriteString("## Coverage\n\n")
	sb.WriteString(fmt.Sprintf("Trade records loaded: %d\n\n", s.RecordsLoaded))
	if len(s.Checks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, c := range s.Checks {
			status := "FAIL"
			if c.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", c.Name, c.Threshold, c.Actual, status))
		}
		sb.WriteString("\n")
		if s.AllChecksPassed() {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Rows outside the covered range carry zero volumes.\n\n")
		}
	} else {
		sb.WriteString("No coverage checks performed.\n\n")
	}

	sb.WriteString("## Output\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", s.Rows))
	sb.WriteString(fmt.Sprintf("| Report Days | %d |\n", s.ReportDays))
	sb.WriteString(fmt.Sprintf("| Accounts | %d |\n", s.Accounts))
	sb.WriteString(fmt.Sprintf("| Positions | %d |\n", s.Positions))
	if s.Digest != "" {
		sb.WriteString(fmt.Sprintf("| CSV SHA-256 | `%s` |\n", s.Digest))
	}
	sb.WriteString("\n")

	if len(s.ByMonth) > 0 {
		sb.WriteString("### Rows by Month\n\n")
		sb.WriteString("| Month | Rows |\n")
		sb.WriteString("|-------|------|\n")
		for _, m := range s.ByMonth {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", m.Month, m.Rows))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Volume Leaders\n\n")
	if len(s.Leaders) > 0 {
		sb.WriteString(fmt.Sprintf("Rank 1 by trailing volume on %s.\n\n", s.LastDate))
		sb.WriteString("| Account | Server | Instrument | Trailing Volume | All-Time Volume |\n")
		sb.WriteString("|---------|--------|------------|-----------------|-----------------|\n")
		for _, l := range s.Leaders {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				l.AccountID, l.ServerID, l.Instrument,
				formatVolume(l.Trailing7dVolume), formatVolume(l.AllTimeVolume)))
		}
	} else {
		sb.WriteString("No ranked positions.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
