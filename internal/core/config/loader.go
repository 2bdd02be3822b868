package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "fortdoc.toml"

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func finish(cfg *Config) (*Config, error) {
	applyDefaults(cfg)
	normalize(cfg)

	if err := validateVersion(cfg); err != nil {
		return nil, err
	}
	if err := validateProject(cfg); err != nil {
		return nil, err
	}
	if err := validateParse(cfg); err != nil {
		return nil, err
	}
	if err := validateDisplay(cfg); err != nil {
		return nil, err
	}
	if err := validateOutput(cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Project.Name) == "" {
		cfg.Project.Name = "project"
	}
	if len(cfg.Project.SrcDirs) == 0 {
		cfg.Project.SrcDirs = []string{"./src"}
	}
	if len(cfg.Project.Extensions) == 0 {
		cfg.Project.Extensions = []string{"f90", "f95", "f03", "f08", "f18"}
	}
	if cfg.Project.FixedExtensions == nil {
		cfg.Project.FixedExtensions = []string{"f", "for", "ftn", "f77"}
	}
	if cfg.Project.ExcludeDirs == nil {
		cfg.Project.ExcludeDirs = []string{".git"}
	}

	if cfg.Parse.Docmark == "" {
		cfg.Parse.Docmark = "!"
	}
	if cfg.Parse.Predocmark == "" {
		cfg.Parse.Predocmark = ">"
	}
	if cfg.Parse.DocmarkAlt == "" {
		cfg.Parse.DocmarkAlt = "*"
	}
	if cfg.Parse.PredocmarkAlt == "" {
		cfg.Parse.PredocmarkAlt = "|"
	}

	if len(cfg.Display.Display) == 0 {
		cfg.Display.Display = []string{"public", "protected"}
	}
	if strings.TrimSpace(cfg.Display.Sort) == "" {
		cfg.Display.Sort = "src"
	}

	if cfg.Externals.Modules == nil {
		cfg.Externals.Modules = map[string]string{}
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "doc"
	}
	if strings.TrimSpace(cfg.Output.JSON) == "" {
		cfg.Output.JSON = "project.json"
	}
	if strings.TrimSpace(cfg.Output.IOJSON) == "" {
		cfg.Output.IOJSON = "io.json"
	}
	if strings.TrimSpace(cfg.Output.Modules) == "" {
		cfg.Output.Modules = "modules.msgpack"
	}
	if strings.TrimSpace(cfg.Output.Graph) == "" {
		cfg.Output.Graph = "modules.dot"
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "data/fortdoc.db"
	}
	if cfg.DB.QueueCapacity == 0 {
		cfg.DB.QueueCapacity = 4
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRebuildsPerSecond == 0 {
		cfg.Watch.MaxRebuildsPerSecond = 1
	}
}

func normalize(cfg *Config) {
	cfg.Project.Extensions = normalizeExtensions(cfg.Project.Extensions)
	cfg.Project.FixedExtensions = normalizeExtensions(cfg.Project.FixedExtensions)
	for i, d := range cfg.Display.Display {
		cfg.Display.Display[i] = strings.ToLower(strings.TrimSpace(d))
	}
	cfg.Display.Sort = strings.ToLower(strings.TrimSpace(cfg.Display.Sort))
	for i, v := range cfg.Parse.ExtraVartypes {
		cfg.Parse.ExtraVartypes[i] = strings.TrimSpace(v)
	}
	lowered := make(map[string]string, len(cfg.Externals.Modules))
	for name, url := range cfg.Externals.Modules {
		lowered[strings.ToLower(strings.TrimSpace(name))] = strings.TrimSpace(url)
	}
	cfg.Externals.Modules = lowered
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			out = append(out, ext)
		}
	}
	return out
}
