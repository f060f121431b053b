package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/stylesync/internal/config"
	"github.com/rileyhilliard/stylesync/internal/doctor"
)

type fakeCheck struct {
	name     string
	category string
	result   doctor.CheckResult
	fixed    *doctor.CheckResult
	fixCalls int
}

func (c *fakeCheck) Name() string     { return c.name }
func (c *fakeCheck) Category() string { return c.category }

func (c *fakeCheck) Run() doctor.CheckResult {
	if c.fixCalls > 0 && c.fixed != nil {
		return *c.fixed
	}
	return c.result
}

func (c *fakeCheck) Fix() error {
	c.fixCalls++
	return nil
}

func sampleChecks() []doctor.Check {
	return []doctor.Check{
		&fakeCheck{name: "config_file", category: "CONFIG", result: doctor.CheckResult{
			Name: "config_file", Status: doctor.StatusWarn, Message: "No config file found",
			Suggestion: "Run 'stylesync init'", Fixable: true,
		}},
		&fakeCheck{name: "config_schema", category: "CONFIG", result: doctor.CheckResult{
			Name: "config_schema", Status: doctor.StatusPass, Message: "Config is valid",
		}},
		&fakeCheck{name: "endpoint", category: "STREAM", result: doctor.CheckResult{
			Name: "endpoint", Status: doctor.StatusFail, Message: "Cannot reach ws://localhost:8000/ws/metrics",
			Suggestion: "Start a producer with 'stylesync serve'",
		}},
	}
}

func TestBuildDoctorOutput(t *testing.T) {
	checks := sampleChecks()
	out := buildDoctorOutput(checks, doctor.RunAll(checks))

	require.Len(t, out.Categories, 2)
	assert.Equal(t, "CONFIG", out.Categories[0].Name)
	assert.Len(t, out.Categories[0].Results, 2)
	assert.Equal(t, "STREAM", out.Categories[1].Name)

	assert.Equal(t, SummaryOutput{Pass: 1, Warn: 1, Fail: 1, Fixable: 1, AllClear: false}, out.Summary)
}

func TestOutputDoctorJSON(t *testing.T) {
	checks := sampleChecks()

	var buf bytes.Buffer
	require.NoError(t, outputDoctorJSON(&buf, checks, doctor.RunAll(checks)))

	var decoded DoctorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Summary.Fail)
	assert.Equal(t, "endpoint", decoded.Categories[1].Results[0].Name)
}

func TestOutputDoctorText(t *testing.T) {
	checks := sampleChecks()

	var buf bytes.Buffer
	outputDoctorText(&buf, checks, doctor.RunAll(checks))
	output := buf.String()

	assert.Contains(t, output, "stylesync diagnostic report")
	assert.Contains(t, output, "CONFIG")
	assert.Contains(t, output, "STREAM")
	assert.Contains(t, output, "Cannot reach ws://localhost:8000/ws/metrics")
	assert.Contains(t, output, "Start a producer with 'stylesync serve'")
	assert.Contains(t, output, "--fix")
	assert.NotContains(t, output, "Config is valid\n    ", "passing checks carry no suggestion line")
}

func TestOutputDoctorText_AllClear(t *testing.T) {
	checks := []doctor.Check{
		&fakeCheck{name: "config_schema", category: "CONFIG", result: doctor.CheckResult{
			Name: "config_schema", Status: doctor.StatusPass, Message: "Config is valid",
		}},
	}

	var buf bytes.Buffer
	outputDoctorText(&buf, checks, doctor.RunAll(checks))
	assert.Contains(t, buf.String(), doctor.Summary(doctor.RunAll(checks)))
	assert.NotContains(t, buf.String(), "--fix")
}

func TestAttemptFixes(t *testing.T) {
	fixed := doctor.CheckResult{Name: "config_file", Status: doctor.StatusPass, Message: "Created .stylesync.yaml"}
	fixable := &fakeCheck{name: "config_file", category: "CONFIG", fixed: &fixed, result: doctor.CheckResult{
		Name: "config_file", Status: doctor.StatusWarn, Fixable: true,
	}}
	broken := &fakeCheck{name: "endpoint", category: "STREAM", result: doctor.CheckResult{
		Name: "endpoint", Status: doctor.StatusFail,
	}}
	checks := []doctor.Check{fixable, broken}

	results := attemptFixes(checks, doctor.RunAll(checks))

	assert.Equal(t, 1, fixable.fixCalls)
	assert.Equal(t, 0, broken.fixCalls, "non-fixable checks are not fixed")
	assert.Equal(t, doctor.StatusPass, results[0].Status)
	assert.Equal(t, doctor.StatusFail, results[1].Status)
}

func TestDoctorStreamURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	origURL := doctorURL
	t.Cleanup(func() { doctorURL = origURL })

	doctorURL = ""
	assert.Equal(t, config.DefaultConfig().Stream.URL, doctorStreamURL())

	doctorURL = "ws://buildbox:8000/ws/metrics"
	assert.Equal(t, "ws://buildbox:8000/ws/metrics", doctorStreamURL())
}
