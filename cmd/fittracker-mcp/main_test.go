package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/myrjola/fittracker/internal/testhelpers"
)

func Test_run_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "log level", env: map[string]string{"FITTRACKER_LOG_LEVEL": "loud"}},
		{name: "partial setup", env: map[string]string{"FITTRACKER_PARTIAL_SETUP": "maybe"}},
		{name: "plan path", env: map[string]string{"FITTRACKER_PLAN_PATH": "/nonexistent/plan.yaml"}},
		{name: "traces dir", env: map[string]string{"FITTRACKER_TRACES_DIR": "/dev/null"}},
		{name: "slow tool threshold", env: map[string]string{"FITTRACKER_SLOW_TOOL_MS": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.env["FITTRACKER_SQLITE_URL"] = filepath.Join(t.TempDir(), "fittracker.sqlite3")
			lookupEnv := func(key string) (string, bool) {
				v, ok := tt.env[key]
				return v, ok
			}
			var stdout bytes.Buffer
			err := run(t.Context(), lookupEnv, strings.NewReader(""), &stdout, testhelpers.NewWriter(t))
			if err == nil {
				t.Error("expected an error")
			}
			if stdout.Len() != 0 {
				t.Errorf("expected nothing on stdout, got %q", stdout.String())
			}
		})
	}
}

func Test_version(t *testing.T) {
	t.Parallel()
	if version() == "" {
		t.Error("expected a version")
	}
}
