package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"launchseq/bootstrap"
	"launchseq/config"
	"launchseq/extensions"
	"launchseq/host"
	"launchseq/journal"

	"github.com/fatih/color"
)

// renderLaunchResult displays the outcome of a launch
func renderLaunchResult(w io.Writer, lc *host.LaunchContext, result bootstrap.Result) {
	if result.Ready() {
		successColor.Fprintf(w, "✓ Application ready")
	} else {
		errorColor.Fprintf(w, "✗ Launch failed")
	}
	fmt.Fprintf(w, " (launch %s, %s)\n\n", lc.LaunchID, formatDuration(result.Duration))

	if len(result.Steps) > 0 {
		printSection(w, "Steps")
		for _, s := range result.Steps {
			fmt.Fprintf(w, "  %s %-28s %8s  %s\n",
				stepMarker(s, result),
				s.Name,
				formatDuration(s.Duration),
				formatMandatory(s.Mandatory))
		}
		fmt.Fprintln(w)
	}

	if len(result.NonFatal) > 0 {
		printSection(w, "Warnings")
		for _, nf := range result.NonFatal {
			warningColor.Fprintf(w, "  - %s: %v\n", nf.Step, nf.Err)
		}
		fmt.Fprintln(w)
	}

	if result.Err != nil {
		printSection(w, "Error")
		for _, line := range strings.Split(bootstrap.ClassifyStepError(result.Err), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

func stepMarker(s bootstrap.StepReport, result bootstrap.Result) string {
	switch {
	case s.Err == nil:
		return color.New(color.FgGreen).Sprint("✓")
	case s.Name == result.FailedStep():
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgYellow).Sprint("!")
	}
}

// renderPlan displays the launch step plan
func renderPlan(w io.Writer, cfg *config.Config, plan []bootstrap.StepPlan) {
	headerColor.Fprintln(w, "LAUNCH STEPS")
	headerColor.Fprintln(w, strings.Repeat("=", 80))
	printField(w, "Application", cfg.App.Name)
	printField(w, "Startup mode", string(cfg.StartupMode))
	printField(w, "Step timeout", cfg.StepTimeout.String())
	fmt.Fprintln(w, strings.Repeat("-", 80))

	for i, p := range plan {
		fmt.Fprintf(w, "%d. %-28s %s\n", i+1, p.Name, formatMandatory(p.Mandatory))
		fmt.Fprintf(w, "   %s\n", p.Description)
	}
	headerColor.Fprintln(w, strings.Repeat("=", 80))
}

// renderExtensions lists the extensions register-extensions would attach
func renderExtensions(w io.Writer, registry *extensions.Registry) {
	fmt.Fprintln(w)
	printSection(w, "Extensions")
	for _, name := range registry.Names() {
		state := color.New(color.FgGreen).Sprint("enabled")
		if !registry.Enabled(name) {
			state = color.New(color.FgYellow).Sprint("disabled")
		}
		fmt.Fprintf(w, "  %-28s %s\n", name, state)
	}
}

// renderHistory displays recent journal entries
func renderHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		warningColor.Fprintln(w, "No launches recorded")
		return
	}

	headerColor.Fprintln(w, "LAUNCH HISTORY")
	headerColor.Fprintln(w, strings.Repeat("=", 100))
	fmt.Fprintf(w, "%-20s %-36s %-8s %-10s %s\n", "Started", "Launch ID", "Status", "Duration", "Detail")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, e := range entries {
		detail := e.FailedStep
		if detail == "" && len(e.NonFatal) > 0 {
			detail = "degraded: " + strings.Join(e.NonFatal, ", ")
		}
		fmt.Fprintf(w, "%-20s %-36s %-8s %-10s %s\n",
			formatTime(e.StartedAt),
			e.LaunchID,
			formatStatus(e.Status),
			formatDuration(e.Duration),
			detail)
	}

	fmt.Fprintln(w, strings.Repeat("=", 100))
}

// printSection prints a section header
func printSection(w io.Writer, title string) {
	headerColor.Fprintf(w, "  %s\n", title)
	headerColor.Fprintln(w, "  "+strings.Repeat("─", len(title)))
}

// printField prints a key-value field
func printField(w io.Writer, key, value string) {
	if value == "" {
		value = "(not set)"
	}
	fmt.Fprintf(w, "  %-25s %s\n", key+":", value)
}

// formatStatus returns a colored status string
func formatStatus(status string) string {
	switch status {
	case string(bootstrap.StatusReady):
		return color.New(color.FgGreen).Sprint(status)
	case string(bootstrap.StatusFailed):
		return color.New(color.FgRed).Sprint(status)
	default:
		return status
	}
}

func formatMandatory(mandatory bool) string {
	if mandatory {
		return "mandatory"
	}
	return color.New(color.FgYellow).Sprint("best-effort")
}

// formatTime formats a timestamp
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
