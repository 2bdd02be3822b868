package app

import (
	"fmt"
	"strings"

	"fortdoc/internal/data/externals"
	"fortdoc/internal/ui/report"
)

// WriteOutputs writes the configured output files for b and returns their
// paths. An output with an empty file name is skipped.
func (a *App) WriteOutputs(b *Build) ([]string, error) {
	out := a.Config.Output
	var written []string

	if name := strings.TrimSpace(out.JSON); name != "" {
		path := a.Config.OutputPath(name)
		if err := report.WriteJSON(path, report.Export(b.Project, b.Index, b.CrossWalk)); err != nil {
			return written, fmt.Errorf("write project JSON %q: %w", path, err)
		}
		written = append(written, path)
	}

	if name := strings.TrimSpace(out.IOJSON); name != "" {
		path := a.Config.OutputPath(name)
		if err := report.WriteJSON(path, report.IOReport(b.Project)); err != nil {
			return written, fmt.Errorf("write I/O JSON %q: %w", path, err)
		}
		written = append(written, path)
	}

	if name := strings.TrimSpace(out.Modules); name != "" {
		path := a.Config.OutputPath(name)
		meta := externals.FromModules(b.Project.Name, b.Project.Modules, out.ModuleURL)
		if err := externals.Write(path, meta); err != nil {
			return written, fmt.Errorf("write module metadata %q: %w", path, err)
		}
		written = append(written, path)
	}

	if name := strings.TrimSpace(out.Graph); name != "" {
		path := a.Config.OutputPath(name)
		if err := report.WriteModuleGraph(path, b.Project); err != nil {
			return written, fmt.Errorf("write module graph %q: %w", path, err)
		}
		written = append(written, path)
	}

	for _, path := range written {
		a.logger.Debug("wrote output", "path", path)
	}
	return written, nil
}
