package crosswalk

import (
	"maps"
	"slices"

	"fortdoc/internal/engine/iotrack"
	"fortdoc/internal/engine/model"
)

type IOOperation struct {
	Kind    string `json:"kind"`
	RawLine string `json:"raw_line"`
	Line    int    `json:"line"`
}

// IOSession is one entry of the project-wide I/O master list.
type IOSession struct {
	UsedIn     string        `json:"used_in"`
	Path       string        `json:"path"`
	Unit       string        `json:"unit"`
	File       string        `json:"file"`
	Operations []IOOperation `json:"operations"`
}

// MasterList flattens the I/O timelines of units into one list, ordered by
// unit then file key.
func MasterList(units []model.Entity) []IOSession {
	var out []IOSession
	for _, u := range units {
		ex := model.ExecOf(u)
		if ex == nil {
			continue
		}
		for _, file := range slices.Sorted(maps.Keys(ex.IO)) {
			fio := ex.IO[file]
			out = append(out, IOSession{
				UsedIn:     u.Base().Name,
				Path:       model.Path(u),
				Unit:       fio.Summary.Unit,
				File:       file,
				Operations: operations(fio.Timeline),
			})
		}
	}
	return out
}

func operations(timeline []iotrack.Operation) []IOOperation {
	out := make([]IOOperation, len(timeline))
	for i, op := range timeline {
		out[i] = IOOperation{Kind: op.Kind, RawLine: op.Raw, Line: op.Line}
	}
	return out
}

// Reports collects the I/O summary of every unit that performed I/O, keyed
// by the unit's path.
func Reports(units []model.Entity) map[string]iotrack.Report {
	out := make(map[string]iotrack.Report)
	for _, u := range units {
		if ex := model.ExecOf(u); ex != nil && len(ex.IO) > 0 {
			out[model.Path(u)] = ex.IO
		}
	}
	return out
}
