package jobs

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stage identifies one of the two pipeline stages.
type Stage string

const (
	// StagePrepare undistorts images from a sparse reconstruction into the workspace.
	StagePrepare Stage = "prepare"
	// StageRun performs dense patch-match stereo over a prepared workspace.
	StageRun Stage = "run"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StagePrepare, StageRun}

// MinRegisteredImages is the smallest reconstruction prepare accepts.
const MinRegisteredImages = 2

// Label renders the stage for operator-facing output.
func (s Stage) Label() string {
	return cases.Title(language.English).String(string(s))
}

// Valid reports whether s names a known stage.
func (s Stage) Valid() bool {
	return s == StagePrepare || s == StageRun
}

// ParseStage resolves a stage name case-insensitively.
func ParseStage(value string) (Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(value)))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown stage %q", value)
	}
	return stage, nil
}
