package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// runCmd executes the root command with args and returns combined output.
func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// useSQLite points the config at a fresh SQLite file for the test.
func useSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "reports.db")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", path)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("N8N_WEBHOOK_URL", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")
	t.Setenv("RECONCILE_SCHEDULE", "")
	return path
}

func TestVersionCmd(t *testing.T) {
	out, err := runCmd(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "crashcalc dev") {
		t.Errorf("expected output to contain 'crashcalc dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.2.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := runCmd(t, "", "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "crashcalc 1.2.0 (commit: abc123, built: 2026-01-01)") {
		t.Errorf("unexpected version output: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCmd(t, "", "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	for _, sub := range []string{"serve", "db", "reconcile", "version"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q, got: %s", sub, out)
		}
	}
}

func TestExecute_ReturnsExitCode(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	if code := execute(ok); code != 0 {
		t.Errorf("execute(ok) = %d, want 0", code)
	}

	failing := newRootCmd()
	failing.SetOut(new(bytes.Buffer))
	failing.SetErr(new(bytes.Buffer))
	failing.SetArgs([]string{"no-such-command"})
	if code := execute(failing); code != 1 {
		t.Errorf("execute(unknown) = %d, want 1", code)
	}
}

func TestServeCmd_MissingConfig(t *testing.T) {
	useSQLite(t)
	_, err := runCmd(t, "", "serve", "--config", "/nonexistent/crashcalc.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "load config")
	}
}

func TestServeCmd_InvalidConfig(t *testing.T) {
	useSQLite(t)
	t.Setenv("DB_DRIVER", "postgres")
	_, err := runCmd(t, "", "serve")
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "database.driver") {
		t.Errorf("error = %q, want to mention database.driver", err.Error())
	}
}
