package main

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func fixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// runCLI builds the binary once per call and returns stdout, stderr and exit code.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "tripwash")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("failed to build CLI: %v", err)
	}

	cmd := exec.Command(binaryPath, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			t.Fatalf("failed to run CLI: %v", err)
		}
	}

	return stdout, stderr, exitCode
}

func TestCLIHelp(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "--help")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	for _, want := range []string{"tripwash", "validate", "run", "watch", "version"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected help to contain %q", want)
		}
	}
}

func TestCLIValidateValidJSON(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "validate", fixturePath("valid-job.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "valid") {
		t.Errorf("expected output to contain 'valid', got: %s", stdout)
	}
	if !strings.Contains(stdout, "json") {
		t.Errorf("expected output to mention 'json' format, got: %s", stdout)
	}
}

func TestCLIValidateValidYAML(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "validate", fixturePath("valid-job.yaml"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	if !strings.Contains(stdout, "yaml") {
		t.Errorf("expected output to mention 'yaml' format, got: %s", stdout)
	}
}

func TestCLIValidateSyntaxError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", fixturePath("invalid-syntax.json"))

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d, got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLIValidateSchemaError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", fixturePath("missing-bounds.json"))

	if exitCode != ExitValidationError {
		t.Errorf("expected exit code %d, got %d", ExitValidationError, exitCode)
	}
	if !strings.Contains(stderr, "Validation errors") {
		t.Errorf("expected stderr to contain 'Validation errors', got: %s", stderr)
	}
}

func TestCLIValidateMissingFile(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate", "nonexistent.json")

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d, got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to mention parse errors, got: %s", stderr)
	}
}

func TestCLIValidateVerbose(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "validate", "--verbose", fixturePath("valid-job.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	if !strings.Contains(stdout, "nyc-trips") {
		t.Errorf("expected verbose output to contain job id, got: %s", stdout)
	}
}

func TestCLIValidateQuiet(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "validate", "--quiet", fixturePath("valid-job.json"))

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	if strings.Contains(stdout, "Validating") {
		t.Errorf("expected quiet mode to suppress output, got: %s", stdout)
	}
}

func TestCLIRunParseError(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "run", fixturePath("invalid-syntax.json"))

	if exitCode != ExitParseError {
		t.Errorf("expected exit code %d, got %d", ExitParseError, exitCode)
	}
	if !strings.Contains(stderr, "Parse errors") {
		t.Errorf("expected stderr to contain 'Parse errors', got: %s", stderr)
	}
}

func TestCLIRunMissingInput(t *testing.T) {
	// Input dataset does not exist, so the job loads but fails at runtime.
	_, _, exitCode := runCLI(t, "run", "--quiet", "--state-dir", t.TempDir(), fixturePath("valid-job.json"))

	if exitCode != ExitRuntimeError {
		t.Errorf("expected exit code %d, got %d", ExitRuntimeError, exitCode)
	}
}

func TestCLIRunHelpMentionsFlags(t *testing.T) {
	stdout, _, exitCode := runCLI(t, "run", "--help")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d", ExitSuccess, exitCode)
	}
	for _, want := range []string{"dry-run", "state-dir", "follow"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected run help to mention %q", want)
		}
	}
}

func TestCLIVersion(t *testing.T) {
	stdout, stderr, exitCode := runCLI(t, "version")

	if exitCode != ExitSuccess {
		t.Errorf("expected exit code %d, got %d\nstderr: %s", ExitSuccess, exitCode, stderr)
	}
	for _, want := range []string{"Version:", "Commit:", "Build Date:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected output to contain %q, got: %s", want, stdout)
		}
	}
}

func TestCLIValidateMissingArg(t *testing.T) {
	_, stderr, exitCode := runCLI(t, "validate")

	if exitCode == ExitSuccess {
		t.Error("expected non-zero exit code for missing argument")
	}
	if !strings.Contains(stderr, "accepts 1 arg") {
		t.Errorf("expected error about missing argument, got: %s", stderr)
	}
}
