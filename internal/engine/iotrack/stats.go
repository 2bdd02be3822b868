package iotrack

import "sort"

type UnitStats struct {
	Files  []string       `json:"files"`
	Counts map[string]int `json:"counts"`
}

type FileStats struct {
	Units []string `json:"units"`
	Count int      `json:"count"`
}

// Stats are the per-unit, per-file and per-kind operation counts.
type Stats struct {
	Units      map[string]UnitStats `json:"units"`
	Files      map[string]FileStats `json:"files"`
	Operations map[string]int       `json:"operations"`
}

func (t *Tracker) Stats() Stats {
	st := Stats{
		Units:      make(map[string]UnitStats),
		Files:      make(map[string]FileStats),
		Operations: make(map[string]int),
	}
	unitFiles := make(map[string]map[string]struct{})
	for _, sess := range t.completed {
		us, ok := st.Units[sess.Unit]
		if !ok {
			us = UnitStats{Counts: make(map[string]int)}
			unitFiles[sess.Unit] = make(map[string]struct{})
		}
		unitFiles[sess.Unit][sessionKey(sess)] = struct{}{}
		for _, op := range sess.Operations {
			us.Counts[op.Kind]++
			st.Operations[op.Kind]++
		}
		st.Units[sess.Unit] = us
	}
	for unit, files := range unitFiles {
		us := st.Units[unit]
		us.Files = sortedSet(files)
		st.Units[unit] = us
	}
	for file, units := range t.files {
		st.Files[file] = FileStats{Units: sortedSet(units), Count: len(units)}
	}
	return st
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
