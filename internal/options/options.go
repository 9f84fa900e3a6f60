// Package options resolves raw command arguments into a validated options
// record for a sync run.
package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nordlicht-dev/ocsync/internal/utils"
)

// DefaultMaxSyncRetries is the number of follow-up passes allowed per run
const DefaultMaxSyncRetries = 3

// ErrVersionRequested is returned by Parse when the only argument asks for
// the version string.
var ErrVersionRequested = errors.New("version requested")

// Options is the validated, immutable record of a sync invocation.
// SourceDir is absolute and ends with a path separator. Rate limits are
// stored in bytes per second.
type Options struct {
	SourceDir         string
	TargetURL         string
	User              string
	Password          string
	Proxy             string
	Silent            bool
	TrustSSL          bool
	UseNetrc          bool
	Interactive       bool
	IgnoreHiddenFiles bool
	ExcludeFile       string
	UnsyncedFolders   string
	DavPath           string
	MaxSyncRetries    int
	UpLimit           int
	DownLimit         int
	LogDebug          bool
}

// looksLikeFlag reports whether a token is treated as a flag rather than a
// flag value. A legitimate value starting with "-" is therefore never
// consumed as a value; that ambiguity is accepted as a parsing rule.
func looksLikeFlag(token string) bool {
	return strings.HasPrefix(token, "-")
}

// Parse resolves an argument list (without the program name) into Options.
// The final two arguments are always <source_dir> <server_url>.
func Parse(args []string) (*Options, error) {
	if len(args) < 2 {
		if len(args) == 1 && (args[0] == "-v" || args[0] == "--version") {
			return nil, ErrVersionRequested
		}
		return nil, usageError("expected <source_dir> <server_url>")
	}

	opts := &Options{
		Interactive:       true,
		IgnoreHiddenFiles: true,
		MaxSyncRetries:    DefaultMaxSyncRetries,
	}

	opts.TargetURL = args[len(args)-1]
	sourceDir := args[len(args)-2]
	rest := args[:len(args)-2]

	if opts.TargetURL == "" || sourceDir == "" {
		return nil, usageError("source directory and server URL must not be empty")
	}

	if !strings.HasSuffix(sourceDir, string(os.PathSeparator)) {
		sourceDir += string(os.PathSeparator)
	}
	if _, err := os.Stat(sourceDir); err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeSourceDirMissing,
			fmt.Sprintf("source dir %q does not exist", sourceDir)).Build())
	}
	abs, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeSourceDirMissing,
			fmt.Sprintf("cannot resolve source dir %q: %v", sourceDir, err)).Build())
	}
	if !strings.HasSuffix(abs, string(os.PathSeparator)) {
		abs += string(os.PathSeparator)
	}
	opts.SourceDir = abs

	for i := 0; i < len(rest); i++ {
		option := rest[i]

		// hasValue reports whether the next token can serve as this
		// flag's value; consume advances to it.
		hasValue := func() bool {
			return i+1 < len(rest) && !looksLikeFlag(rest[i+1])
		}
		consume := func() string {
			i++
			return rest[i]
		}

		switch {
		case option == "--httpproxy" && hasValue():
			opts.Proxy = consume()
		case option == "-s" || option == "--silent":
			opts.Silent = true
		case option == "--trust":
			opts.TrustSSL = true
		case option == "-n":
			opts.UseNetrc = true
		case option == "-h":
			opts.IgnoreHiddenFiles = false
		case option == "--non-interactive":
			opts.Interactive = false
		case (option == "-u" || option == "--user") && hasValue():
			opts.User = consume()
		case (option == "-p" || option == "--password") && hasValue():
			opts.Password = consume()
		case option == "--exclude" && hasValue():
			opts.ExcludeFile = consume()
		case option == "--unsyncedfolders" && hasValue():
			opts.UnsyncedFolders = consume()
		case option == "--davpath" && hasValue():
			opts.DavPath = consume()
		case option == "--max-sync-retries" && hasValue():
			n, err := strconv.Atoi(consume())
			if err != nil {
				return nil, usageError("--max-sync-retries expects a number")
			}
			opts.MaxSyncRetries = n
		case option == "--uplimit" && hasValue():
			n, err := strconv.Atoi(consume())
			if err != nil {
				return nil, usageError("--uplimit expects a number (KB/s)")
			}
			opts.UpLimit = n * 1000
		case option == "--downlimit" && hasValue():
			n, err := strconv.Atoi(consume())
			if err != nil {
				return nil, usageError("--downlimit expects a number (KB/s)")
			}
			opts.DownLimit = n * 1000
		case option == "--logdebug":
			opts.LogDebug = true
		default:
			return nil, usageError(fmt.Sprintf("unrecognized option %q", option))
		}
	}

	return opts, nil
}

func usageError(msg string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeUsage, msg).Build())
}

// SplitProxySpec parses a proxy spec of the form "scheme://host:port".
// The spec must split into exactly three colon-separated segments.
func SplitProxySpec(spec string) (scheme, host string, port int, err error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return "", "", 0, utils.NewAppError(utils.NewCLIError(utils.ErrCodeProxyInvalid,
			`proxy must have the format "http://hostname:port"`).Build())
	}
	scheme = parts[0]
	host = strings.TrimPrefix(parts[1], "//")
	port, err = strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, utils.NewAppError(utils.NewCLIError(utils.ErrCodeProxyInvalid,
			fmt.Sprintf("proxy port %q is not a number", parts[2])).Build())
	}
	return scheme, host, port, nil
}

// Usage returns the help text printed on usage errors.
func Usage() string {
	var sb strings.Builder
	sb.WriteString("ocsync - command line sync client\n\n")
	sb.WriteString("Usage: ocsync [OPTION] <source_dir> <server_url>\n\n")
	sb.WriteString("A proxy can be set manually using --httpproxy.\n\n")
	sb.WriteString("Options:\n")
	sb.WriteString("  --silent, -s            Don't be so verbose\n")
	sb.WriteString("  --httpproxy [proxy]     Specify a http proxy to use (http://server:port)\n")
	sb.WriteString("  --trust                 Trust the SSL certification\n")
	sb.WriteString("  --exclude [file]        Exclude list file\n")
	sb.WriteString("  --unsyncedfolders [file]  File containing the list of unsynced remote folders\n")
	sb.WriteString("  --user, -u [name]       Use [name] as the login name\n")
	sb.WriteString("  --password, -p [pass]   Use [pass] as password\n")
	sb.WriteString("  -n                      Use netrc (5) for login\n")
	sb.WriteString("  --non-interactive       Do not block execution with interaction\n")
	sb.WriteString("  --davpath [path]        Custom themed dav path\n")
	sb.WriteString("  --max-sync-retries [n]  Retries maximum n times (default to 3)\n")
	sb.WriteString("  --uplimit [n]           Limit the upload speed of files to n KB/s\n")
	sb.WriteString("  --downlimit [n]         Limit the download speed of files to n KB/s\n")
	sb.WriteString("  -h                      Sync hidden files, do not ignore them\n")
	sb.WriteString("  --version, -v           Display version and exit\n")
	sb.WriteString("  --logdebug              More verbose logging\n")
	return sb.String()
}
