package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"mvspipe/internal/artifacts"
	"mvspipe/internal/workflow"
	"mvspipe/internal/workspace"
)

// statusKind grades a status line; each kind has a bracketed label and an
// ANSI color used on terminals.
type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusKinds = map[statusKind]struct{ label, color string }{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

func (k statusKind) label() string {
	if meta, ok := statusKinds[k]; ok {
		return meta.label
	}
	return statusKinds[statusInfo].label
}

func (k statusKind) paint(s string, colorize bool) string {
	meta, ok := statusKinds[k]
	if !colorize || !ok {
		return s
	}
	return meta.color + s + ansiReset
}

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

// renderStatusLine formats "  Label:   [KIND] message" padded to a shared width.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	tag := "[" + kind.label() + "]"
	if message != "" {
		tag += " " + message
	}
	return kind.paint(fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", tag), colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	return []string{statusInfo.paint(line, colorize), statusInfo.paint(rule, colorize)}
}

// shouldColorize enables ANSI colors only when writing to a terminal.
func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func stateKind(state workspace.State) statusKind {
	switch state {
	case workspace.StateReady:
		return statusOK
	case workspace.StatePrepared:
		return statusWarn
	default:
		return statusError
	}
}

func enabledKind(enabled bool) statusKind {
	if enabled {
		return statusOK
	}
	return statusWarn
}

// renderSnapshot prints readiness lines followed by the artifact grid.
func renderSnapshot(out io.Writer, snap workflow.Snapshot, colorize bool) {
	for _, line := range renderSectionHeader("Workspace", colorize) {
		fmt.Fprintln(out, line)
	}
	path := snap.Workspace
	if path == "" {
		path = "(none)"
	}
	fmt.Fprintln(out, renderStatusLine("Path", statusInfo, path, colorize))
	fmt.Fprintln(out, renderStatusLine("State", stateKind(snap.State()), string(snap.State()), colorize))
	fmt.Fprintln(out, renderStatusLine("Prepare", enabledKind(snap.Readiness.PrepareEnabled), yesNo(snap.Readiness.PrepareEnabled), colorize))
	fmt.Fprintln(out, renderStatusLine("Run", enabledKind(snap.Readiness.RunEnabled), yesNo(snap.Readiness.RunEnabled), colorize))
	if len(snap.Missing) > 0 {
		fmt.Fprintln(out, renderStatusLine("Missing", statusWarn, strings.Join(snap.Missing, ", "), colorize))
	}
	if !snap.Readiness.RunEnabled {
		return
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Artifacts", colorize) {
		fmt.Fprintln(out, line)
	}
	if len(snap.Grid) == 0 {
		fmt.Fprintln(out, "No reference images listed in the patch-match config")
		return
	}
	fmt.Fprintln(out, renderGrid(snap.Grid))
}

var gridColumns = []column{
	{header: "Image"},
	{header: "Photometric depth"},
	{header: "Photometric normal"},
	{header: "Geometric depth"},
	{header: "Geometric normal"},
}

// renderGrid draws one row per reference image with per-column totals in the
// footer.
func renderGrid(grid artifacts.Grid) string {
	rows := make([][]string, 0, len(grid))
	for _, row := range grid {
		rows = append(rows, []string{
			row.Item,
			presence(row.Photometric.Depth),
			presence(row.Photometric.Normal),
			presence(row.Geometric.Depth),
			presence(row.Geometric.Normal),
		})
	}
	counts := grid.Counts()
	total := len(grid)
	footer := []string{
		fmt.Sprintf("%d images", total),
		ratio(counts.PhotometricDepth, total),
		ratio(counts.PhotometricNormal, total),
		ratio(counts.GeometricDepth, total),
		ratio(counts.GeometricNormal, total),
	}
	return renderTable(gridColumns, rows, footer)
}

func ratio(n, total int) string {
	return fmt.Sprintf("%d/%d", n, total)
}

func presence(a artifacts.Artifact) string {
	if a.Exists {
		return "yes"
	}
	return "-"
}
