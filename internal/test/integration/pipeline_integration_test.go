package integration

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortdoc/internal/core/app"
	"fortdoc/internal/core/config"
	"fortdoc/internal/data/symbols"
	"fortdoc/internal/engine/model"
)

const geometrySrc = `module geometry
  !! Points and distances.
  implicit none
  private
  public :: point_t, distance, log_point
  type :: point_t
    real :: x = 0.0, y = 0.0
  end type point_t
contains
  function distance(a, b) result(d)
    type(point_t), intent(in) :: a, b
    real :: d
    d = sqrt((a%x - b%x)**2 + (a%y - b%y)**2)
  end function distance
  subroutine log_point(p)
    type(point_t), intent(in) :: p
    open (20, file="points.log")
    write (20, *) p%x, p%y
    close (20)
  end subroutine log_point
end module geometry
`

// Fixed form, columns matter.
const legacySrc = `      SUBROUTINE LEGACY(N)
C     Old style helper.
      INTEGER N
      N = N + 1
      END SUBROUTINE LEGACY
`

const driverSrc = `program driver
  use geometry
  type(point_t) :: p, q
  real :: d
  integer :: k
  d = distance(p, q)
  call log_point(p)
  call legacy(k)
end program driver
`

const configTemplate = `version = 1

[project]
name = "pipeline"
src_dirs = ["src"]

[output]
dir = "doc"

[db]
enabled = true
path = "data/fortdoc.db"
keep_runs = 2
`

func createProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/geometry.f90":     geometrySrc,
		"src/legacy/legacy.f": legacySrc,
		"src/driver.F90":       driverSrc,
		"fortdoc.toml":         configTemplate,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestFullPipelineIntegration(t *testing.T) {
	root := createProject(t)
	cfg, err := config.Load(filepath.Join(root, "fortdoc.toml"))
	require.NoError(t, err)
	cfg.ResolvePaths(root)

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()

	b, err := a.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	p := b.Project
	assert.Len(t, p.Files, 3)
	require.Len(t, p.Modules, 1)
	require.Len(t, p.Programs, 1)

	var fixed int
	for _, f := range p.Files {
		if f.Fixed {
			fixed++
		}
	}
	assert.Equal(t, 1, fixed, "legacy.f should be read as fixed form")

	driver := p.Programs[0]
	require.Len(t, driver.Uses, 1)
	assert.Same(t, model.Entity(p.Modules[0]), driver.Uses[0].Module)
	calls := map[string]model.Entity{}
	for _, c := range driver.Calls {
		calls[c.Name()] = c.Target
	}
	require.Contains(t, calls, "log_point")
	assert.NotNil(t, calls["log_point"])

	sessions := a.IOSessions("points.log")
	require.Len(t, sessions, 1)
	assert.Equal(t, "20", sessions[0].Unit)

	raw, err := os.ReadFile(filepath.Join(root, "doc", "project.json"))
	require.NoError(t, err)
	var doc struct {
		Name  string `json:"name"`
		Files []struct {
			Path string `json:"path"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "pipeline", doc.Name)
	assert.Len(t, doc.Files, 3)
	assert.FileExists(t, filepath.Join(root, "doc", "modules.msgpack"))

	store, err := symbols.Open(cfg.DB.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(ctx, "pipeline")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	ents, err := store.Entities(ctx, runs[0].ID, "legacy")
	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.Equal(t, "proc", ents[0].Kind)
}

func TestPipeline_RebuildKeepsConfiguredRuns(t *testing.T) {
	root := createProject(t)
	cfg, err := config.Load(filepath.Join(root, "fortdoc.toml"))
	require.NoError(t, err)
	cfg.ResolvePaths(root)

	a, err := app.New(cfg, nil)
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := a.Run(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, a.Close(ctx))

	store, err := symbols.Open(cfg.DB.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(ctx, "pipeline")
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}
