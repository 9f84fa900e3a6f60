package engine

import (
	"sort"
	"strings"

	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/pathset"
)

type actionType int

const (
	actionMkdirLocal actionType = iota
	actionMkdirRemote
	actionUpload
	actionDownload
	actionDeleteLocal
	actionDeleteRemote
	// actionRecord refreshes the journal baseline without transferring
	// anything (identical content found on both sides).
	actionRecord
)

type action struct {
	typ  actionType
	path string
}

// localEntry describes one path found in the source tree.
type localEntry struct {
	Path  string
	IsDir bool
	Size  int64
	MTime int64
}

// remoteEntry describes one path found below the remote folder.
type remoteEntry struct {
	Path  string
	IsDir bool
	Size  int64
	Etag  string
	MTime int64
}

// plan derives the actions for one pass from the local scan, the remote
// scan, and the journal baseline. Paths changed on both sides are skipped;
// this engine does not resolve conflicts.
func plan(local map[string]localEntry, remote map[string]remoteEntry, prev map[string]journal.Entry) ([]action, []string) {
	paths := pathset.New[string]()
	for p := range local {
		paths.Add(p)
	}
	for p := range remote {
		paths.Add(p)
	}

	var actions []action
	var skipped []string

	for p := range paths {
		l, lok := local[p]
		r, rok := remote[p]
		prevEntry, pok := prev[p]

		// type mismatch between the sides is never propagated
		if lok && rok && l.IsDir != r.IsDir {
			skipped = append(skipped, p)
			continue
		}

		isDir := (lok && l.IsDir) || (rok && r.IsDir)
		if isDir {
			switch {
			case lok && !rok:
				if pok {
					actions = append(actions, action{actionDeleteLocal, p})
				} else {
					actions = append(actions, action{actionMkdirRemote, p})
				}
			case !lok && rok:
				if pok {
					actions = append(actions, action{actionDeleteRemote, p})
				} else {
					actions = append(actions, action{actionMkdirLocal, p})
				}
			default:
				if !pok || prevEntry.Etag != r.Etag {
					actions = append(actions, action{actionRecord, p})
				}
			}
			continue
		}

		switch {
		case lok && !rok:
			if pok {
				// present in the baseline, gone on the server
				actions = append(actions, action{actionDeleteLocal, p})
			} else {
				actions = append(actions, action{actionUpload, p})
			}
		case !lok && rok:
			if pok {
				actions = append(actions, action{actionDeleteRemote, p})
			} else {
				actions = append(actions, action{actionDownload, p})
			}
		default:
			localChanged := !pok || l.MTime != prevEntry.LocalMTime || l.Size != prevEntry.LocalSize
			remoteChanged := !pok || prevEntry.Etag == journal.EtagInvalid || r.Etag != prevEntry.Etag

			switch {
			case !pok:
				// no baseline yet; adopt identical files, leave the
				// rest alone rather than guess a direction
				if l.Size == r.Size {
					actions = append(actions, action{actionRecord, p})
				} else {
					skipped = append(skipped, p)
				}
			case localChanged && remoteChanged:
				skipped = append(skipped, p)
			case localChanged:
				actions = append(actions, action{actionUpload, p})
			case remoteChanged:
				actions = append(actions, action{actionDownload, p})
			}
		}
	}

	sortActions(actions)
	sort.Strings(skipped)
	return actions, skipped
}

// sortActions orders a pass: directory creates shallow-first, then
// transfers, then deletes deep-first.
func sortActions(actions []action) {
	phase := func(t actionType) int {
		switch t {
		case actionMkdirLocal, actionMkdirRemote:
			return 0
		case actionUpload, actionDownload, actionRecord:
			return 1
		default:
			return 2
		}
	}
	depth := func(p string) int {
		return strings.Count(p, "/")
	}
	sort.Slice(actions, func(i, j int) bool {
		pi, pj := phase(actions[i].typ), phase(actions[j].typ)
		if pi != pj {
			return pi < pj
		}
		di, dj := depth(actions[i].path), depth(actions[j].path)
		if pi == 2 && di != dj {
			return di > dj
		}
		if di != dj {
			return di < dj
		}
		return actions[i].path < actions[j].path
	})
}
