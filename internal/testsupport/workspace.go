package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mvspipe/internal/workspace"
)

// WorkspaceOption customizes a generated workspace fixture.
type WorkspaceOption func(*workspaceBuilder)

type workspaceBuilder struct {
	skip        map[string]bool
	configLines []string
	artifacts   []string
}

// WithoutEntry leaves the named required entry (for example
// workspace.SparseDir or workspace.PatchMatchConfig) out of the fixture.
func WithoutEntry(rel string) WorkspaceOption {
	return func(b *workspaceBuilder) {
		b.skip[rel] = true
	}
}

// WithConfigLines sets the patch-match configuration content.
func WithConfigLines(lines ...string) WorkspaceOption {
	return func(b *workspaceBuilder) {
		b.configLines = lines
	}
}

// WithArtifacts creates empty files at the given workspace-relative paths.
func WithArtifacts(rels ...string) WorkspaceOption {
	return func(b *workspaceBuilder) {
		b.artifacts = append(b.artifacts, rels...)
	}
}

// NewWorkspace builds a workspace that satisfies every dense-stage
// requirement unless options remove entries. It returns the workspace root.
func NewWorkspace(t testing.TB, opts ...WorkspaceOption) string {
	t.Helper()

	builder := &workspaceBuilder{
		skip:        map[string]bool{},
		configLines: []string{"# generated", "img1.jpg", "__auto__, 20", "img2.jpg", "__auto__, 20"},
	}
	for _, opt := range opts {
		opt(builder)
	}

	root := t.TempDir()
	for _, rel := range []string{
		workspace.ImagesDir,
		workspace.SparseDir,
		workspace.DepthMapsDir,
		workspace.NormalMapsDir,
		workspace.ConsistencyGraphsDir,
	} {
		if builder.skip[rel] {
			continue
		}
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(rel)), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
	}

	if !builder.skip[workspace.PatchMatchConfig] {
		cfgPath := filepath.Join(root, filepath.FromSlash(workspace.PatchMatchConfig))
		if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
			t.Fatalf("mkdir dense: %v", err)
		}
		content := strings.Join(builder.configLines, "\n") + "\n"
		if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
			t.Fatalf("write patch-match config: %v", err)
		}
	}

	for _, rel := range builder.artifacts {
		Touch(t, filepath.Join(root, filepath.FromSlash(rel)))
	}
	return root
}
