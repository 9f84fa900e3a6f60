// Package exclude loads exclude-pattern files and decides which relative
// paths the engine must never touch.
package exclude

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// SystemExcludeFileName is the name of the exclude list shipped with the
// tool.
const SystemExcludeFileName = "sync-exclude.lst"

// systemExcludeDirs are checked in order for the system exclude list.
var systemExcludeDirs = []string{
	"/etc/ocsync",
	"/usr/local/etc/ocsync",
}

// SystemExcludeFilePath returns the path of the system exclude list: the
// first existing candidate, or the primary candidate when none exists (so
// callers can report a meaningful path).
func SystemExcludeFilePath() string {
	for _, dir := range systemExcludeDirs {
		candidate := filepath.Join(dir, SystemExcludeFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), SystemExcludeFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join(systemExcludeDirs[0], SystemExcludeFileName)
}

// ExcludedFiles holds the registered exclude-pattern files and the patterns
// loaded from them.
type ExcludedFiles struct {
	files    []string
	patterns []string
}

func New() *ExcludedFiles {
	return &ExcludedFiles{}
}

// AddExcludeFilePath registers a pattern file to be loaded on the next
// Reload.
func (e *ExcludedFiles) AddExcludeFilePath(path string) {
	e.files = append(e.files, path)
}

// AddCandidates registers the user and system exclude files. The user file
// is always registered when given; the system file is registered when no
// user file was given or the system file exists on disk.
func (e *ExcludedFiles) AddCandidates(userFile, systemFile string) {
	hasUserFile := userFile != ""
	if hasUserFile {
		e.AddExcludeFilePath(userFile)
	}
	if _, err := os.Stat(systemFile); !hasUserFile || err == nil {
		e.AddExcludeFilePath(systemFile)
	}
}

// Files returns the registered exclude-file paths.
func (e *ExcludedFiles) Files() []string {
	return e.files
}

// Reload re-reads all registered pattern files as a unit. Any unreadable
// file fails the whole reload; the engine must not run with an unknown
// exclude policy.
func (e *ExcludedFiles) Reload() error {
	var patterns []string
	for _, file := range e.files {
		loaded, err := loadPatternFile(file)
		if err != nil {
			return fmt.Errorf("loading exclude list %q: %w", file, err)
		}
		patterns = append(patterns, loaded...)
	}
	e.patterns = patterns
	return nil
}

// Patterns returns the currently loaded patterns.
func (e *ExcludedFiles) Patterns() []string {
	return e.patterns
}

func loadPatternFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

// IsExcluded reports whether a slash-separated relative path matches any
// loaded pattern.
func (e *ExcludedFiles) IsExcluded(relPath string, isDir bool) bool {
	if e == nil {
		return false
	}
	relPath = strings.TrimPrefix(relPath, "./")
	for _, p := range e.patterns {
		if strings.HasSuffix(p, "/") {
			dirPattern := strings.TrimSuffix(p, "/")
			if relPath == dirPattern || strings.HasPrefix(relPath, dirPattern+"/") {
				return true
			}
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, relPath); ok {
				return true
			}
			if ok, _ := path.Match(p, path.Base(relPath)); ok {
				return true
			}
			continue
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if !isDir && path.Base(relPath) == p {
			return true
		}
	}
	return false
}
