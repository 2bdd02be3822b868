package config

import "time"

// Config is the decoded form of fortdoc.toml.
type Config struct {
	Version       int           `toml:"version"`
	Project       Project       `toml:"project"`
	Parse         Parse         `toml:"parse"`
	Display       Display       `toml:"display"`
	Externals     Externals     `toml:"externals"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Project struct {
	Name            string   `toml:"name"`
	SrcDirs         []string `toml:"src_dirs"`
	Extensions      []string `toml:"extensions"`
	FixedExtensions []string `toml:"fixed_extensions"`
	ExcludeDirs     []string `toml:"exclude_dirs"`
	Exclude         []string `toml:"exclude"`
}

type Parse struct {
	Docmark          string   `toml:"docmark"`
	Predocmark       string   `toml:"predocmark"`
	DocmarkAlt       string   `toml:"docmark_alt"`
	PredocmarkAlt    string   `toml:"predocmark_alt"`
	FixedLengthLimit *bool    `toml:"fixed_length_limit"`
	ExtraVartypes    []string `toml:"extra_vartypes"`
	Lower            bool     `toml:"lower"`
	Force            bool     `toml:"force"`
	Debug            bool     `toml:"debug"`
	Workers          int      `toml:"workers"`
}

type Display struct {
	Display       []string `toml:"display"`
	HideUndoc     bool     `toml:"hide_undoc"`
	ProcInternals bool     `toml:"proc_internals"`
	Sort          string   `toml:"sort"`
}

type Externals struct {
	Modules  map[string]string `toml:"modules"`
	Metadata []string          `toml:"metadata"`
}

type Output struct {
	Dir     string `toml:"dir"`
	JSON    string `toml:"json"`
	IOJSON  string `toml:"io_json"`
	Modules string `toml:"modules"`
	Graph   string `toml:"graph"`
	// ModuleURL prefixes the documentation links stored in the module
	// metadata file.
	ModuleURL string `toml:"module_url"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	// KeepRuns bounds the stored runs per project; 0 keeps everything.
	KeepRuns int `toml:"keep_runs"`
	// QueueCapacity bounds the builds waiting to be written in watch mode.
	QueueCapacity int `toml:"queue_capacity"`
}

type Watch struct {
	Debounce             time.Duration `toml:"debounce"`
	MaxRebuildsPerSecond float64       `toml:"max_rebuilds_per_second"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
}

// FixedLimit reports whether fixed-form lines are cut at column 72.
func (p Parse) FixedLimit() bool {
	return p.FixedLengthLimit == nil || *p.FixedLengthLimit
}
