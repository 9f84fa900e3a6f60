package engine

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/studio-b12/gowebdav"

	"github.com/nordlicht-dev/ocsync/internal/journal"
	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/ocs"
	"github.com/nordlicht-dev/ocsync/internal/sync/exclude"
)

// DavEngine synchronizes a local tree with a WebDAV folder in single,
// whole-file passes. No conflict resolution and no chunking; paths changed
// on both sides are reported and skipped.
type DavEngine struct {
	account   *ocs.Account
	sourceDir string
	folder    string
	journal   *journal.Journal
	logger    logging.Logger

	excludes          *exclude.ExcludedFiles
	ignoreHiddenFiles bool
	uplimit           int
	downlimit         int

	dav *gowebdav.Client
}

// New creates a WebDAV engine for one account/folder pairing. The transport
// carries the run's TLS trust and proxy settings.
func New(account *ocs.Account, sourceDir, folder string, jnl *journal.Journal, transport http.RoundTripper, logger logging.Logger) *DavEngine {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	dav := gowebdav.NewClient(account.DavURL(), account.Credentials.User, account.Credentials.Password)
	if transport != nil {
		dav.SetTransport(transport)
	}
	return &DavEngine{
		account:           account,
		sourceDir:         sourceDir,
		folder:            folder,
		journal:           jnl,
		logger:            logger,
		excludes:          exclude.New(),
		ignoreHiddenFiles: true,
		dav:               dav,
	}
}

func (e *DavEngine) ExcludedFiles() *exclude.ExcludedFiles {
	return e.excludes
}

func (e *DavEngine) SetIgnoreHiddenFiles(ignore bool) {
	e.ignoreHiddenFiles = ignore
}

func (e *DavEngine) SetNetworkLimits(uplimit, downlimit int) {
	e.uplimit = uplimit
	e.downlimit = downlimit
}

// Start begins one pass. The completion signal is delivered on the returned
// channel; the channel is buffered so the result is never lost.
func (e *DavEngine) Start(ctx context.Context) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		done <- e.runPass(ctx)
	}()
	return done
}

func (e *DavEngine) runPass(ctx context.Context) Result {
	blacklist, err := e.journal.SelectiveSyncList(ctx, journal.SelectiveSyncBlackList)
	if err != nil {
		return Result{Err: fmt.Errorf("reading selective sync list: %w", err)}
	}

	prev, err := e.journal.Entries(ctx)
	if err != nil {
		return Result{Err: fmt.Errorf("reading journal: %w", err)}
	}

	etagBefore := e.rootEtag()

	local, err := e.scanLocal(ctx, blacklist)
	if err != nil {
		return Result{Err: fmt.Errorf("scanning local tree: %w", err)}
	}

	remote := make(map[string]remoteEntry)
	if err := e.scanRemote(ctx, "", blacklist, remote); err != nil {
		return Result{Err: fmt.Errorf("scanning remote tree: %w", err)}
	}

	actions, skipped := plan(local, remote, prev)
	for _, p := range skipped {
		e.logger.Warn("skipping path changed on both sides", logging.F("path", p))
	}

	summary := Summary{Skipped: len(skipped)}
	remoteWrites := 0
	for _, act := range actions {
		if ctx.Err() != nil {
			return Result{Err: ctx.Err(), Summary: summary}
		}
		if err := e.apply(ctx, act, local, remote); err != nil {
			e.logger.Error("sync action failed",
				logging.F("path", act.path),
				logging.F("error", err.Error()),
			)
			summary.Failed++
			continue
		}
		switch act.typ {
		case actionUpload:
			summary.Uploads++
			remoteWrites++
		case actionDownload:
			summary.Downloads++
		case actionMkdirLocal:
			summary.Mkdirs++
		case actionMkdirRemote:
			summary.Mkdirs++
			remoteWrites++
		case actionDeleteLocal:
			summary.LocalDeletes++
		case actionDeleteRemote:
			summary.RemoteDeletes++
			remoteWrites++
		}
	}

	e.forgetVanished(ctx, prev, local, remote, blacklist)

	// The root etag moving while we only read from the server means some
	// other client changed the remote mid-pass; ask for another pass.
	// After our own writes the etag comparison is meaningless.
	followUp := false
	if etagBefore != "" && remoteWrites == 0 {
		if etagAfter := e.rootEtag(); etagAfter != "" && etagAfter != etagBefore {
			followUp = true
		}
	}

	return Result{
		Success:          summary.Failed == 0,
		FollowUpRequired: followUp,
		Summary:          summary,
	}
}

// forgetVanished drops baselines for paths that exist on neither side
// anymore. Paths the scans filtered out (hidden, excluded, unselected) keep
// their baseline so re-including them later does not misread new files as
// deletions.
func (e *DavEngine) forgetVanished(ctx context.Context, prev map[string]journal.Entry, local map[string]localEntry, remote map[string]remoteEntry, blacklist []string) {
	for p, entry := range prev {
		if _, ok := local[p]; ok {
			continue
		}
		if _, ok := remote[p]; ok {
			continue
		}
		if e.hidden(path.Base(p)) || e.excludes.IsExcluded(p, entry.IsDir) || isBlacklisted(p, blacklist) {
			continue
		}
		if err := e.journal.DeleteEntry(ctx, p); err != nil {
			e.logger.Warn("could not drop stale journal entry",
				logging.F("path", p),
				logging.F("error", err.Error()))
		}
	}
}

// rootEtag fetches the etag of the remote folder, or "" when unavailable.
func (e *DavEngine) rootEtag() string {
	info, err := e.dav.Stat(e.folder)
	if err != nil {
		return ""
	}
	return etagOf(info)
}

func etagOf(info os.FileInfo) string {
	switch f := info.(type) {
	case gowebdav.File:
		return f.ETag()
	case *gowebdav.File:
		return f.ETag()
	}
	return ""
}

func isBlacklisted(rel string, blacklist []string) bool {
	candidate := rel + "/"
	for _, b := range blacklist {
		if candidate == b || strings.HasPrefix(candidate, b) {
			return true
		}
	}
	return false
}

func (e *DavEngine) hidden(name string) bool {
	return e.ignoreHiddenFiles && strings.HasPrefix(name, ".")
}

func (e *DavEngine) scanLocal(ctx context.Context, blacklist []string) (map[string]localEntry, error) {
	entries := make(map[string]localEntry)

	err := filepath.WalkDir(e.sourceDir, func(current string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(e.sourceDir, current)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = path.Clean(filepath.ToSlash(rel))

		if e.hidden(d.Name()) || e.excludes.IsExcluded(rel, d.IsDir()) || isBlacklisted(rel, blacklist) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		if info.IsDir() {
			entries[rel] = localEntry{Path: rel, IsDir: true, MTime: info.ModTime().Unix()}
			return nil
		}
		if info.Mode().IsRegular() {
			entries[rel] = localEntry{
				Path:  rel,
				Size:  info.Size(),
				MTime: info.ModTime().Unix(),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (e *DavEngine) scanRemote(ctx context.Context, rel string, blacklist []string, entries map[string]remoteEntry) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	infos, err := e.dav.ReadDir(e.remotePath(rel))
	if err != nil {
		return err
	}

	for _, info := range infos {
		childRel := info.Name()
		if rel != "" {
			childRel = path.Join(rel, info.Name())
		}

		if e.hidden(info.Name()) || e.excludes.IsExcluded(childRel, info.IsDir()) || isBlacklisted(childRel, blacklist) {
			continue
		}

		entries[childRel] = remoteEntry{
			Path:  childRel,
			IsDir: info.IsDir(),
			Size:  info.Size(),
			Etag:  etagOf(info),
			MTime: info.ModTime().Unix(),
		}

		if info.IsDir() {
			if err := e.scanRemote(ctx, childRel, blacklist, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

// remotePath maps a relative path onto the dav client's namespace.
func (e *DavEngine) remotePath(rel string) string {
	if rel == "" {
		return e.folder
	}
	return path.Join(e.folder, rel)
}

func (e *DavEngine) localPath(rel string) string {
	return filepath.Join(e.sourceDir, filepath.FromSlash(rel))
}

func (e *DavEngine) apply(ctx context.Context, act action, local map[string]localEntry, remote map[string]remoteEntry) error {
	switch act.typ {
	case actionMkdirLocal:
		e.logger.Debug("mkdir local", logging.F("path", act.path))
		if err := os.MkdirAll(e.localPath(act.path), 0755); err != nil {
			return err
		}
		return e.journal.SaveEntry(ctx, journal.Entry{
			Path:  act.path,
			IsDir: true,
			Etag:  remote[act.path].Etag,
		})

	case actionMkdirRemote:
		e.logger.Debug("mkdir remote", logging.F("path", act.path))
		if err := e.dav.MkdirAll(e.remotePath(act.path), 0755); err != nil {
			return err
		}
		return e.journal.SaveEntry(ctx, journal.Entry{Path: act.path, IsDir: true})

	case actionUpload:
		e.logger.Info("uploading", logging.F("path", act.path))
		return e.upload(ctx, act.path, local[act.path])

	case actionDownload:
		e.logger.Info("downloading", logging.F("path", act.path))
		return e.download(ctx, act.path, remote[act.path])

	case actionDeleteLocal:
		e.logger.Info("deleting locally", logging.F("path", act.path))
		if err := os.RemoveAll(e.localPath(act.path)); err != nil {
			return err
		}
		return e.journal.DeleteEntry(ctx, act.path)

	case actionDeleteRemote:
		e.logger.Info("deleting remotely", logging.F("path", act.path))
		if err := e.dav.RemoveAll(e.remotePath(act.path)); err != nil {
			return err
		}
		return e.journal.DeleteEntry(ctx, act.path)

	case actionRecord:
		l := local[act.path]
		return e.journal.SaveEntry(ctx, journal.Entry{
			Path:       act.path,
			IsDir:      l.IsDir || remote[act.path].IsDir,
			Etag:       remote[act.path].Etag,
			LocalMTime: l.MTime,
			LocalSize:  l.Size,
			RemoteSize: remote[act.path].Size,
		})
	}
	return nil
}

func (e *DavEngine) upload(ctx context.Context, rel string, l localEntry) error {
	f, err := os.Open(e.localPath(rel))
	if err != nil {
		return err
	}
	defer f.Close()

	reader := newLimitedReader(ctx, f, e.uplimit)
	if err := e.dav.WriteStream(e.remotePath(rel), reader, 0644); err != nil {
		return err
	}

	etag := ""
	if info, err := e.dav.Stat(e.remotePath(rel)); err == nil {
		etag = etagOf(info)
	}

	return e.journal.SaveEntry(ctx, journal.Entry{
		Path:       rel,
		Etag:       etag,
		LocalMTime: l.MTime,
		LocalSize:  l.Size,
		RemoteSize: l.Size,
	})
}

func (e *DavEngine) download(ctx context.Context, rel string, r remoteEntry) error {
	stream, err := e.dav.ReadStream(e.remotePath(rel))
	if err != nil {
		return err
	}
	defer stream.Close()

	target := e.localPath(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.Create(target)
	if err != nil {
		return err
	}

	reader := newLimitedReader(ctx, stream, e.downlimit)
	if _, err := copyStream(f, reader); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	mtime := time.Unix(r.MTime, 0)
	if r.MTime > 0 {
		_ = os.Chtimes(target, mtime, mtime)
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	return e.journal.SaveEntry(ctx, journal.Entry{
		Path:       rel,
		Etag:       r.Etag,
		LocalMTime: info.ModTime().Unix(),
		LocalSize:  info.Size(),
		RemoteSize: r.Size,
	})
}
