package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fortdoc.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[project]
name = "ocean"
src_dirs = ["./src", "./lib"]
extensions = [".F90", "f90"]
exclude = ["*_old.f90"]

[parse]
extra_vartypes = ["real_kind"]
force = true

[display]
display = ["Public"]
sort = "alpha"

[externals]
modules = { ISO_C_Binding = "https://example.org/iso_c_binding" }

[watch]
debounce = "1s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ocean", cfg.Project.Name)
	assert.Equal(t, []string{"./src", "./lib"}, cfg.Project.SrcDirs)
	assert.Equal(t, []string{"f90", "f90"}, cfg.Project.Extensions)
	assert.Equal(t, []string{"f", "for", "ftn", "f77"}, cfg.Project.FixedExtensions)
	assert.Equal(t, []string{"real_kind"}, cfg.Parse.ExtraVartypes)
	assert.True(t, cfg.Parse.Force)
	assert.True(t, cfg.Parse.FixedLimit())
	assert.Equal(t, "!", cfg.Parse.Docmark)
	assert.Equal(t, ">", cfg.Parse.Predocmark)
	assert.Equal(t, []string{"public"}, cfg.Display.Display)
	assert.Equal(t, "alpha", cfg.Display.Sort)
	assert.Equal(t, "https://example.org/iso_c_binding", cfg.Externals.Modules["iso_c_binding"])
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "project.json", cfg.Output.JSON)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"sort":          "[display]\nsort = \"random\"\n",
		"display":       "[display]\ndisplay = [\"everyone\"]\n",
		"docmark":       "[parse]\ndocmark = \"!!\"\n",
		"duplicate":     "[parse]\ndocmark = \">\"\n",
		"workers":       "[parse]\nworkers = -1\n",
		"version":       "version = 3\n",
		"overlap":       "[project]\nsrc_dirs = [\"src\", \"src/sub\"]\n",
		"bothforms":     "[project]\nextensions = [\"f\"]\n",
		"emptyExclude":  "[project]\nexclude = [\"\"]\n",
		"sameOutputs":   "[output]\njson = \"a.json\"\nio_json = \"a.json\"\n",
		"negativeWatch": "[watch]\nmax_rebuilds_per_second = -2.0\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"public", "protected"}, cfg.Display.Display)
	assert.Equal(t, "src", cfg.Display.Sort)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestFixedLengthLimitExplicitFalse(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[parse]\nfixed_length_limit = false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Parse.FixedLimit())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FORTDOC_PARSE_FORCE", "true")
	t.Setenv("FORTDOC_PROJECT_SRC_DIRS", "a, b")
	t.Setenv("FORTDOC_WATCH_DEBOUNCE", "2s")
	t.Setenv("FORTDOC_PARSE_WORKERS", "not-a-number")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	assert.True(t, cfg.Parse.Force)
	assert.Equal(t, []string{"a", "b"}, cfg.Project.SrcDirs)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, 0, cfg.Parse.Workers)
}

func TestConversions(t *testing.T) {
	path := writeConfig(t, `
[project]
src_dirs = ["src"]
exclude = ["*_old.f90"]

[parse]
docmark = "#"
fixed_length_limit = false
workers = 3
debug = true

[display]
display = ["none"]
proc_internals = true
sort = "type-alpha"

[externals]
modules = { mpi = "https://mpi.example.org" }
metadata = ["deps/lib.msgpack"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.ResolvePaths(filepath.Dir(path))

	ps := cfg.ParserSettings()
	assert.Equal(t, "#", ps.Reader.Docmark)
	assert.False(t, ps.Reader.FixedLengthLimit)
	assert.True(t, ps.Debug)

	po := cfg.ProjectOptions()
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "src")}, po.SrcDirs)
	assert.Equal(t, 3, po.Workers)
	assert.Equal(t, []string{"*_old.f90"}, po.Exclude)

	co := cfg.CorrelateOptions()
	assert.NotNil(t, co.Display)
	assert.Empty(t, co.Display)
	assert.True(t, co.ProcInternals)
	assert.Equal(t, "type-alpha", co.Sort)
	assert.Equal(t, "https://mpi.example.org", co.ExtraModules["mpi"])

	assert.Equal(t, filepath.Join(filepath.Dir(path), "deps", "lib.msgpack"), cfg.Externals.Metadata[0])
	assert.Equal(t, filepath.Join(filepath.Dir(path), "doc", "modules.msgpack"), cfg.OutputPath(cfg.Output.Modules))
}
