package workspace

import (
	"path/filepath"

	"mvspipe/internal/patchmatch"
)

// Fixed workspace entries, relative to the workspace root.
const (
	ImagesDir            = "images"
	SparseDir            = "sparse"
	DenseDir             = "dense"
	DepthMapsDir         = "dense/depth_maps"
	NormalMapsDir        = "dense/normal_maps"
	ConsistencyGraphsDir = "dense/consistency_graphs"
	PatchMatchConfig     = "dense/" + patchmatch.ConfigFileName
)

// requiredDirs must all be directories before the dense stage can run.
var requiredDirs = []string{
	ImagesDir,
	DepthMapsDir,
	NormalMapsDir,
	SparseDir,
	ConsistencyGraphsDir,
}

// Layout resolves the fixed workspace entries against a root directory.
type Layout struct {
	Root              string
	Images            string
	Sparse            string
	DepthMaps         string
	NormalMaps        string
	ConsistencyGraphs string
	Config            string
}

// NewLayout resolves every fixed entry under root.
func NewLayout(root string) Layout {
	return Layout{
		Root:              root,
		Images:            join(root, ImagesDir),
		Sparse:            join(root, SparseDir),
		DepthMaps:         join(root, DepthMapsDir),
		NormalMaps:        join(root, NormalMapsDir),
		ConsistencyGraphs: join(root, ConsistencyGraphsDir),
		Config:            join(root, PatchMatchConfig),
	}
}

func join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
