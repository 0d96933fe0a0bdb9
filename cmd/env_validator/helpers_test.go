package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/jonathan/env-validator/internal/config"
)

// clearEnv blanks the variables ApplyEnv reads so a local .env cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvEnvironmentID,
		config.EnvAPIKey,
		config.EnvBaseURL,
		config.EnvExportFilename,
		config.EnvDatabaseURL,
	} {
		t.Setenv(key, "")
	}
}

// executeCommand runs the root command in-process and returns its standard output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}
