package deps

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to resolve to %s, got %#v", present, results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank command result %#v", results[2])
	}
}

func TestStageRequirements(t *testing.T) {
	reqs := StageRequirements("  colmap ")
	if len(reqs) != 1 || reqs[0].Name != "COLMAP" {
		t.Fatalf("unexpected requirements %#v", reqs)
	}
	status := resolve(reqs[0], func(cmd string) (string, error) {
		if cmd != "colmap" {
			t.Fatalf("lookup of untrimmed command %q", cmd)
		}
		return "/opt/colmap/bin/colmap", nil
	})
	if status.Path != "/opt/colmap/bin/colmap" || status.UsedBy() != "prepare, run" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestAcceleratorStatusDetail(t *testing.T) {
	acc := NewAccelerator(ModeAuto, "")
	if status := acc.Status(); status.Available || status.Detail != "query binary not configured" || status.UsedBy() != "run" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestAcceleratorModes(t *testing.T) {
	found := func(string) (string, error) { return "/usr/bin/nvidia-smi", nil }
	missing := func(string) (string, error) { return "", errors.New("not found") }

	cases := []struct {
		name     string
		mode     string
		query    string
		lookPath func(string) (string, error)
		want     bool
	}{
		{"forced on", ModeEnabled, "", missing, true},
		{"forced off", ModeDisabled, "nvidia-smi", found, false},
		{"auto found", ModeAuto, "nvidia-smi", found, true},
		{"auto missing", ModeAuto, "nvidia-smi", missing, false},
		{"auto unconfigured", ModeAuto, "", found, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := NewAccelerator(tc.mode, tc.query)
			acc.lookPath = tc.lookPath
			if got := acc.Available(); got != tc.want {
				t.Fatalf("Available() = %v want %v (detail %q)", got, tc.want, acc.Status().Detail)
			}
		})
	}
}

func TestAcceleratorAutoOnPath(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "gpu-query"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)
	if !NewAccelerator("auto", "gpu-query").Available() {
		t.Fatal("expected accelerator to be detected from PATH")
	}
}
