package artifacts

import (
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"mvspipe/internal/workspace"
)

// Mode identifies the dense stereo processing mode that produced a map.
type Mode string

const (
	ModePhotometric Mode = "photometric"
	ModeGeometric   Mode = "geometric"
)

// Modes lists the processing modes in display order.
var Modes = []Mode{ModePhotometric, ModeGeometric}

// Suffix returns the file suffix appended to an item name for this mode.
func (m Mode) Suffix() string {
	return "." + string(m) + ".bin"
}

// Kind distinguishes depth maps from normal maps.
type Kind string

const (
	KindDepth  Kind = "depth"
	KindNormal Kind = "normal"
)

// Artifact records where a single map should live and whether it does.
type Artifact struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// ModeArtifacts holds the depth and normal map for one processing mode.
type ModeArtifacts struct {
	Depth  Artifact `json:"depth"`
	Normal Artifact `json:"normal"`
}

// Row is the availability record for one reference image.
type Row struct {
	Item        string        `json:"item"`
	ImagePath   string        `json:"image_path,omitempty"`
	Photometric ModeArtifacts `json:"photometric"`
	Geometric   ModeArtifacts `json:"geometric"`
}

// Mode returns the artifacts for the requested mode.
func (r Row) Mode(mode Mode) ModeArtifacts {
	if mode == ModeGeometric {
		return r.Geometric
	}
	return r.Photometric
}

// Artifact returns a single artifact by mode and kind.
func (r Row) Artifact(mode Mode, kind Kind) Artifact {
	m := r.Mode(mode)
	if kind == KindNormal {
		return m.Normal
	}
	return m.Depth
}

// Grid is the ordered availability table, one row per reference image.
type Grid []Row

// Counts tallies present artifacts per mode and kind.
type Counts struct {
	PhotometricDepth  int `json:"photometric_depth"`
	PhotometricNormal int `json:"photometric_normal"`
	GeometricDepth    int `json:"geometric_depth"`
	GeometricNormal   int `json:"geometric_normal"`
}

// Counts summarizes how many of each artifact exist.
func (g Grid) Counts() Counts {
	var c Counts
	for _, row := range g {
		if row.Photometric.Depth.Exists {
			c.PhotometricDepth++
		}
		if row.Photometric.Normal.Exists {
			c.PhotometricNormal++
		}
		if row.Geometric.Depth.Exists {
			c.GeometricDepth++
		}
		if row.Geometric.Normal.Exists {
			c.GeometricNormal++
		}
	}
	return c
}

// Find returns the first row for item.
func (g Grid) Find(item string) (Row, bool) {
	for _, row := range g {
		if row.Item == item {
			return row, true
		}
	}
	return Row{}, false
}

// Prober reports whether a path exists. Implementations must not fail loudly;
// any probe error reads as absent.
type Prober func(path string) bool

// DefaultProbeWorkers bounds concurrent probing; workspaces often live on
// network mounts where each stat is a round trip.
const DefaultProbeWorkers = 8

// Builder assembles status grids from a list of reference images.
type Builder struct {
	exists  Prober
	workers int
}

// NewBuilder returns a Builder using the provided existence probe.
func NewBuilder(exists Prober) *Builder {
	return &Builder{exists: exists, workers: DefaultProbeWorkers}
}

// WithWorkers sets how many rows are probed concurrently. n < 1 means one.
func (b *Builder) WithWorkers(n int) *Builder {
	b.workers = max(n, 1)
	return b
}

// Build probes the depth and normal maps of every item against the filesystem.
func Build(items []string, depthMapsRoot, normalMapsRoot string) Grid {
	return NewBuilder(workspace.Exists).Build(items, "", depthMapsRoot, normalMapsRoot)
}

// BuildForLayout builds a grid for items using the roots of a workspace layout.
func BuildForLayout(items []string, layout workspace.Layout) Grid {
	return NewBuilder(workspace.Exists).Build(items, layout.Images, layout.DepthMaps, layout.NormalMaps)
}

// Build probes the four artifacts of every item. Rows follow items exactly,
// duplicates included. imagesRoot may be empty, in which case ImagePath is left
// unset.
func (b *Builder) Build(items []string, imagesRoot, depthMapsRoot, normalMapsRoot string) Grid {
	grid := make(Grid, len(items))
	var g errgroup.Group
	g.SetLimit(max(b.workers, 1))
	for i, item := range items {
		g.Go(func() error {
			row := Row{Item: item}
			if imagesRoot != "" {
				row.ImagePath = filepath.Join(imagesRoot, item)
			}
			row.Photometric = b.probeMode(item, ModePhotometric, depthMapsRoot, normalMapsRoot)
			row.Geometric = b.probeMode(item, ModeGeometric, depthMapsRoot, normalMapsRoot)
			grid[i] = row
			return nil
		})
	}
	// Probes never fail; a missing file is simply absent.
	_ = g.Wait()
	return grid
}

func (b *Builder) probeMode(item string, mode Mode, depthRoot, normalRoot string) ModeArtifacts {
	return ModeArtifacts{
		Depth:  b.probe(filepath.Join(depthRoot, item+mode.Suffix())),
		Normal: b.probe(filepath.Join(normalRoot, item+mode.Suffix())),
	}
}

func (b *Builder) probe(path string) Artifact {
	return Artifact{Path: path, Exists: b.exists(path)}
}
