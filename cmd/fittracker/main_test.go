package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fittracker/internal/testhelpers"
)

// cli runs commands against one database file.
type cli struct {
	t   *testing.T
	env map[string]string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, env: map[string]string{
		"FITTRACKER_SQLITE_URL": filepath.Join(t.TempDir(), "fittracker.sqlite3"),
		"FITTRACKER_LOG_LEVEL":  "debug",
	}}
}

func (c *cli) lookupEnv(key string) (string, bool) {
	v, ok := c.env[key]
	return v, ok
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var stdout bytes.Buffer
	err := run(c.t.Context(), args, c.lookupEnv, &stdout, testhelpers.NewWriter(c.t))
	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	if err != nil {
		c.t.Fatalf("run(%v) error = %v", args, err)
	}
	return out
}

func Test_run_Usage(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out, err := c.run()
	if err == nil {
		t.Error("expected an error without a command")
	}
	if !strings.Contains(out, "usage: fittracker") || !strings.Contains(out, "recommend") {
		t.Errorf("expected usage, got %q", out)
	}

	if _, err = c.run("lift"); err == nil {
		t.Error("expected an error for an unknown command")
	}
}

func Test_run_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "language", key: "FITTRACKER_LANGUAGE", val: "fi"},
		{name: "log level", key: "FITTRACKER_LOG_LEVEL", val: "loud"},
		{name: "partial setup", key: "FITTRACKER_PARTIAL_SETUP", val: "maybe"},
		{name: "plan path", key: "FITTRACKER_PLAN_PATH", val: "/nonexistent/plan.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := newCLI(t)
			c.env[tt.key] = tt.val
			if _, err := c.run("exercises"); err == nil {
				t.Errorf("expected an error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func Test_run_TrainingFlow(t *testing.T) {
	t.Parallel()
	c := newCLI(t)

	out := c.mustRun("exercises", "-category", "Chest")
	if !strings.HasPrefix(out, "1 ") {
		t.Errorf("expected the first chest exercise first, got %q", out)
	}

	if out = c.mustRun("recommend", "-exercise", "1", "-date", "2024-01-08"); out != "此動作尚未啟用週期訓練。\n" {
		t.Errorf("unexpected output for an unconfigured exercise %q", out)
	}

	c.mustRun("setup", "-exercise", "1", "-base", "40", "-equipment", "machine", "-date", "2024-01-01")
	c.mustRun("log", "-exercise", "1", "-weight", "30", "-reps", "10", "-date", "2024-01-01")
	c.mustRun("log", "-exercise", "1", "-weight", "34", "-reps", "7", "-date", "2024-01-03")
	c.mustRun("log", "-exercise", "1", "-weight", "20", "-reps", "15", "-date", "2024-01-05")
	if out = c.mustRun("rpe", "-exercise", "1", "-quick", "hard", "-date", "2024-01-05"); out != "RPE 9 極重\n" {
		t.Errorf("unexpected rpe output %q", out)
	}

	out = c.mustRun("history", "-exercise", "1", "-n", "2")
	want := "2024-01-05: 20kg×15 RPE9 極重\n2024-01-03: 34kg×7\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	out = c.mustRun("recommend", "-exercise", "1", "-date", "2024-01-08")
	if !strings.HasPrefix(out, "C2-W1 肌肥大\n31.9kg × 8-12 下 × 4 組\n") {
		t.Errorf("unexpected recommendation %q", out)
	}

	if out = c.mustRun("advance", "-exercise", "1", "-date", "2024-01-08"); out != "已進入下個週期。\n" {
		t.Errorf("unexpected advance output %q", out)
	}
	if out = c.mustRun("advance", "-exercise", "1", "-date", "2024-01-08"); out != "今天沒有需要推進的週期。\n" {
		t.Errorf("unexpected second advance output %q", out)
	}

	if _, err := c.run("log", "-exercise", "1", "-weight", "30"); err == nil {
		t.Error("expected an error without -reps")
	}
}

func Test_run_Report(t *testing.T) {
	t.Parallel()
	c := newCLI(t)
	c.env["FITTRACKER_LANGUAGE"] = "en"

	if out := c.mustRun("report", "-date", "2024-01-08"); !strings.Contains(out, "No exercise has periodization enabled") {
		t.Errorf("unexpected empty report %q", out)
	}

	c.mustRun("setup", "-exercise", "1", "-base", "40", "-equipment", "machine", "-date", "2024-01-08")
	out := c.mustRun("report", "-date", "2024-01-08", "-html")
	if !strings.Contains(out, "<table>") || !strings.Contains(out, "30kg × 8-12 下 × 4 組") {
		t.Errorf("unexpected html report %q", out)
	}
}

func Test_run_ExportImport(t *testing.T) {
	t.Parallel()
	source := newCLI(t)

	id := strings.TrimSpace(source.mustRun("create", "-name", "Sled push", "-category", "Legs"))
	source.mustRun("log", "-exercise", id, "-weight", "225", "-reps", "5", "-lbs", "-date", "2024-02-01")
	source.mustRun("cardio", "-machine", "跑步機", "-duration", "30", "-kcal", "250", "-date", "2024-02-01")
	source.mustRun("body", "-weight", "80", "-height", "180", "-age", "30")

	path := filepath.Join(t.TempDir(), "backup.json")
	if out := source.mustRun("export", "-o", path); out != path+"\n" {
		t.Errorf("unexpected export output %q", out)
	}

	target := newCLI(t)
	target.mustRun("import", "-i", path)
	if out := target.mustRun("history", "-exercise", id); out != "2024-02-01: 102.1kg×5\n" {
		t.Errorf("unexpected imported history %q", out)
	}
	if out := target.mustRun("body"); out != "80kg 180cm 30\n" {
		t.Errorf("unexpected imported body data %q", out)
	}

	out := target.mustRun("stats", "-date", "2024-02-01")
	for _, want := range []string{"250 kcal", "510.5kg"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats %q does not contain %q", out, want)
		}
	}

	broken := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(broken, []byte(`{"version":1}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := target.run("import", "-i", broken); err == nil {
		t.Error("expected an error for a backup without data")
	}
}
