package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/doctor"
	"github.com/rileyhilliard/stylesync/internal/errors"
	"github.com/rileyhilliard/stylesync/internal/ui"
)

var (
	doctorJSON bool
	doctorFix  bool
	doctorURL  string

	doctorTimeout time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config and stream problems",
	Long: `Check the config file, then dial the stream endpoint and wait for a
frame that decodes.

Examples:
  stylesync doctor
  stylesync doctor --fix
  stylesync doctor --url ws://buildbox:8000/ws/metrics --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(os.Stdout)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "attempt automatic fixes where possible")
	doctorCmd.Flags().StringVar(&doctorURL, "url", "", "stream endpoint to check (overrides stream.url)")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", doctor.DefaultTimeout, "how long to wait for the endpoint and first frame")
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	Fixable  int  `json:"fixable"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(w io.Writer) error {
	checks := doctor.DefaultChecks(doctor.Options{
		ConfigPath: Config(),
		URL:        doctorStreamURL(),
		Timeout:    doctorTimeout,
	})

	results := doctor.RunAll(checks)
	if doctorFix {
		results = attemptFixes(checks, results)
	}

	var err error
	if doctorJSON {
		err = outputDoctorJSON(w, checks, results)
	} else {
		outputDoctorText(w, checks, results)
	}
	if err != nil {
		return err
	}

	if doctor.HasFailures(results) {
		return errors.New(errors.ErrConfig,
			doctor.Summary(results),
			"Fix the failing checks above and run 'stylesync doctor' again.")
	}
	return nil
}

// doctorStreamURL picks --url, then the configured URL, then the default.
// A broken config still lets the stream checks run.
func doctorStreamURL() string {
	if doctorURL != "" {
		return doctorURL
	}
	if cfg, _, err := config.Resolve(Config()); err == nil && cfg.Stream.URL != "" {
		return cfg.Stream.URL
	}
	return config.DefaultConfig().Stream.URL
}

// attemptFixes runs Fix for fixable issues and re-runs the check.
func attemptFixes(checks []doctor.Check, results []doctor.CheckResult) []doctor.CheckResult {
	for i, result := range results {
		if result.Fixable && (result.Status == doctor.StatusFail || result.Status == doctor.StatusWarn) {
			if err := checks[i].Fix(); err == nil {
				results[i] = checks[i].Run()
			}
		}
	}
	return results
}

// buildDoctorOutput groups results by category in first-seen order.
func buildDoctorOutput(checks []doctor.Check, results []doctor.CheckResult) DoctorOutput {
	grouped := make(map[string][]doctor.CheckResult)
	var order []string
	for i, check := range checks {
		cat := check.Category()
		if _, exists := grouped[cat]; !exists {
			order = append(order, cat)
		}
		grouped[cat] = append(grouped[cat], results[i])
	}

	output := DoctorOutput{Categories: make([]CategoryOutput, 0, len(order))}
	for _, cat := range order {
		output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: grouped[cat]})
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		Fixable:  doctor.FixableCount(results),
		AllClear: !doctor.HasIssues(results),
	}
	return output
}

func outputDoctorJSON(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buildDoctorOutput(checks, results))
}

func outputDoctorText(w io.Writer, checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("stylesync diagnostic report"))
	fmt.Fprintln(w)

	for _, cat := range buildDoctorOutput(checks, results).Categories {
		fmt.Fprintln(w, headerStyle.Render(cat.Name))
		for _, result := range cat.Results {
			fmt.Fprintln(w, renderCheckResult(result))
			if result.Suggestion != "" && result.Status != doctor.StatusPass {
				fmt.Fprintf(w, "    %s\n", mutedStyle.Render(result.Suggestion))
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, strings.Repeat("━", 60))
	fmt.Fprintln(w)

	if !doctor.HasIssues(results) {
		fmt.Fprintf(w, "%s %s\n", lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render(ui.SymbolSuccess), doctor.Summary(results))
	} else {
		fmt.Fprintf(w, "%s %s\n", lipgloss.NewStyle().Foreground(ui.ColorError).Render(ui.SymbolFail), doctor.Summary(results))
		if doctor.FixableCount(results) > 0 && !doctorFix {
			fmt.Fprintf(w, "\n  Run with %s to attempt automatic fixes where possible.\n", mutedStyle.Render("--fix"))
		}
	}
	fmt.Fprintln(w)
}

func renderCheckResult(result doctor.CheckResult) string {
	symbol, color := ui.SymbolComplete, ui.ColorSuccess
	switch result.Status {
	case doctor.StatusWarn:
		symbol, color = ui.SymbolWarn, ui.ColorWarning
	case doctor.StatusFail:
		symbol, color = ui.SymbolFail, ui.ColorError
	}
	return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Foreground(color).Render(symbol), result.Message)
}
