package main

import (
	"errors"
	"strings"
	"testing"
)

func TestRunReturnsErrorsInsteadOfExiting(t *testing.T) {
	if err := run(nil); !errors.Is(err, errUsage) {
		t.Fatalf("missing command: got %v", err)
	}
	if err := run([]string{"bogus"}); !errors.Is(err, errUsage) {
		t.Fatalf("unknown command: got %v", err)
	}
	if err := run([]string{"sync:payroll"}); err == nil || !strings.Contains(err.Error(), "--dept") {
		t.Fatalf("missing dept: got %v", err)
	}
	if err := run([]string{"parse:payroll", "--input", t.TempDir() + "/missing.csv"}); err == nil {
		t.Fatal("missing input file should be reported")
	}
}
