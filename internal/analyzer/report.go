package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"bigocheck/internal/config"
	"bigocheck/internal/models"
)

// ReportGenerator handles formatting and displaying analysis results
type ReportGenerator struct {
	format string
	config *config.Config
}

func NewReportGenerator(cfg *config.Config) *ReportGenerator {
	return &ReportGenerator{
		format: cfg.Output.Format,
		config: cfg,
	}
}

// Generate creates a formatted report from analysis results. A JSON
// encoding failure is fatal and reported verbatim.
func (r *ReportGenerator) Generate(report *models.Report) (string, error) {
	switch r.format {
	case "json":
		return r.generateJSON(report)
	default:
		return r.generateConsole(report), nil
	}
}

// generateJSON emits the machine-readable shape: one object per
// function, in extraction order. Per-file errors travel on the
// diagnostics channel so the array stays parseable.
func (r *ReportGenerator) generateJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report.Verdicts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	return string(data) + "\n", nil
}

// Diagnostics renders the per-file errors bound for stderr in JSON
// mode, where stdout must stay a pure verdict array. Console output
// inlines the errors itself, so this returns nothing for it.
func (r *ReportGenerator) Diagnostics(report *models.Report) string {
	if r.format != "json" {
		return ""
	}
	var b strings.Builder
	for _, e := range report.Errors {
		fmt.Fprintf(&b, "bigocheck: %s: %s\n", e.File, e.Message)
	}
	return b.String()
}

func (r *ReportGenerator) generateConsole(report *models.Report) string {
	var b strings.Builder

	useColors := r.config.Output.Colors
	verbose := r.config.Output.Verbose

	if useColors {
		b.WriteString(color.CyanString("🔍 bigocheck Complexity Report\n"))
		b.WriteString(color.WhiteString("═══════════════════════════════════════\n\n"))
	} else {
		b.WriteString("bigocheck Complexity Report\n")
		b.WriteString("=======================================\n\n")
	}

	for _, e := range report.Errors {
		if useColors {
			b.WriteString(color.RedString("✗ %s: %s\n", e.File, e.Message))
		} else {
			fmt.Fprintf(&b, "ERROR %s: %s\n", e.File, e.Message)
		}
	}
	if len(report.Errors) > 0 {
		b.WriteString("\n")
	}

	var currentFile string
	for _, v := range report.Verdicts {
		if v.File != currentFile {
			currentFile = v.File
			if useColors {
				b.WriteString(color.WhiteString("%s\n", currentFile))
			} else {
				fmt.Fprintf(&b, "%s\n", currentFile)
			}
		}
		r.writeVerdictLine(&b, v, useColors, verbose)
	}

	if report.TotalFunctions == 0 && len(report.Errors) == 0 {
		if useColors {
			b.WriteString(color.YellowString("⚠️  No functions found to analyze\n"))
		} else {
			b.WriteString("No functions found to analyze\n")
		}
	}

	b.WriteString("\n")
	r.writeSummary(&b, report, useColors)
	return b.String()
}

func (r *ReportGenerator) writeVerdictLine(b *strings.Builder, v models.Verdict, useColors, verbose bool) {
	timeLabel := v.TimeClass.String()
	if useColors {
		timeLabel = classColor(v.TimeClass)("%-10s", timeLabel)
	} else {
		timeLabel = fmt.Sprintf("%-10s", timeLabel)
	}

	fmt.Fprintf(b, "  %-28s time %s  space %-10s loops=%d recursion=%d",
		v.Function, timeLabel, v.SpaceClass, v.Loops, v.Recursion)

	if v.Source == models.SourceRemote {
		if useColors {
			b.WriteString(color.MagentaString("  [remote]"))
		} else {
			b.WriteString("  [remote]")
		}
	}
	if verbose && v.EarlyExit {
		b.WriteString("  (early-exit search)")
	}
	b.WriteString("\n")
}

func (r *ReportGenerator) writeSummary(b *strings.Builder, report *models.Report, useColors bool) {
	line := fmt.Sprintf("%d functions across %d files", report.TotalFunctions, len(report.Files))
	if n := report.VerdictsBySource[string(models.SourceRemote)]; n > 0 {
		line += fmt.Sprintf(" (%d classified remotely)", n)
	}
	if useColors {
		b.WriteString(color.GreenString("%s\n", line))
		b.WriteString(color.WhiteString("Analysis completed in %s\n", report.AnalysisDuration))
	} else {
		b.WriteString(line + "\n")
		fmt.Fprintf(b, "Analysis completed in %s\n", report.AnalysisDuration)
	}
}

// classColor picks a severity color for a time class: cheap classes
// green, polynomial yellow to red, combinatorial red.
func classColor(c models.Class) func(format string, a ...interface{}) string {
	switch {
	case c <= models.ClassLinear:
		return color.GreenString
	case c <= models.ClassQuadratic:
		return color.YellowString
	case c == models.ClassUnknown:
		return color.WhiteString
	default:
		return color.RedString
	}
}
