package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/workflow"
	"mvspipe/internal/workspace"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("State", statusError, "invalid", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "State:", "[ERROR] invalid")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("State", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
	if got := renderStatusLine("Path", statusInfo, "", false); !strings.HasSuffix(got, "[INFO]") {
		t.Fatalf("expected bare tag without message, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderSnapshotInvalidSkipsGrid(t *testing.T) {
	var buf bytes.Buffer
	renderSnapshot(&buf, workflow.Snapshot{Workspace: "/nope", Missing: []string{"."}}, false)
	out := buf.String()
	if !strings.Contains(out, "[ERROR] "+string(workspace.StateInvalid)) {
		t.Fatalf("expected invalid state line:\n%s", out)
	}
	if strings.Contains(out, "Artifacts") {
		t.Fatalf("did not expect artifact section:\n%s", out)
	}
}

func TestRenderSnapshotReadyShowsGridTotals(t *testing.T) {
	grid := artifacts.Grid{
		{Item: "a.jpg", Photometric: artifacts.ModeArtifacts{Depth: artifacts.Artifact{Exists: true}}},
		{Item: "b.jpg"},
	}
	snap := workflow.Snapshot{
		Workspace: "/ws",
		Readiness: workspace.Readiness{PrepareEnabled: true, RunEnabled: true},
		Grid:      grid,
	}
	var buf bytes.Buffer
	renderSnapshot(&buf, snap, false)
	out := buf.String()
	for _, want := range []string{"a.jpg", "b.jpg", "1/2", "0/2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "a.jpg") > strings.Index(out, "b.jpg") {
		t.Fatalf("expected rows in config order:\n%s", out)
	}
}

func TestRenderSnapshotEmptyGrid(t *testing.T) {
	snap := workflow.Snapshot{Readiness: workspace.Readiness{PrepareEnabled: true, RunEnabled: true}}
	var buf bytes.Buffer
	renderSnapshot(&buf, snap, false)
	if !strings.Contains(buf.String(), "No reference images") {
		t.Fatalf("expected empty grid notice:\n%s", buf.String())
	}
}
