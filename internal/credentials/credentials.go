// Package credentials resolves the effective login for a sync run from the
// target URL, explicit flags, netrc, and interactive prompts, in that order.
package credentials

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	netrc "github.com/jdx/go-netrc"
	"golang.org/x/term"

	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/options"
)

// Credentials is the resolved login pair. An empty pair is passed through to
// the engine rather than treated as an error.
type Credentials struct {
	User     string
	Password string
	TrustSSL bool
}

// NetrcSource looks up a login for a host. ok is false when the host has no
// entry or the netrc file cannot be read.
type NetrcSource interface {
	Lookup(host string) (user, password string, ok bool)
}

// Prompter asks the operator for missing credential fields.
type Prompter interface {
	PromptUser() (string, error)
	PromptPassword(user string) (string, error)
}

// Chain resolves credentials from its sources in fixed precedence. A nil
// Netrc or Prompter disables that source.
type Chain struct {
	Netrc    NetrcSource
	Prompter Prompter
	Logger   logging.Logger
}

// Resolve evaluates the four sources in order: URL userinfo, explicit
// options, netrc (only when enabled), interactive prompts (only when
// interactive and the field is still empty). Later sources override earlier
// ones only with non-empty values.
func (c *Chain) Resolve(u *url.URL, opts *options.Options) (Credentials, error) {
	logger := c.Logger
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	cred := Credentials{TrustSSL: opts.TrustSSL}

	if u.User != nil {
		cred.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			cred.Password = pw
		}
	}

	if opts.User != "" {
		cred.User = opts.User
	}
	if opts.Password != "" {
		cred.Password = opts.Password
	}

	if opts.UseNetrc && c.Netrc != nil {
		if user, password, ok := c.Netrc.Lookup(u.Hostname()); ok {
			if user != "" {
				cred.User = user
			}
			if password != "" {
				cred.Password = password
			}
			logger.Debug("credentials taken from netrc", logging.F("host", u.Hostname()))
		} else {
			logger.Debug("no netrc entry for host", logging.F("host", u.Hostname()))
		}
	}

	if opts.Interactive && c.Prompter != nil {
		if cred.User == "" {
			user, err := c.Prompter.PromptUser()
			if err != nil {
				return Credentials{}, fmt.Errorf("reading user name: %w", err)
			}
			cred.User = user
		}
		if cred.Password == "" {
			password, err := c.Prompter.PromptPassword(cred.User)
			if err != nil {
				return Credentials{}, fmt.Errorf("reading password: %w", err)
			}
			cred.Password = password
		}
	}

	return cred, nil
}

// FileNetrc reads logins from a netrc(5) file.
type FileNetrc struct {
	Path string
}

// DefaultNetrc uses ~/.netrc.
func DefaultNetrc() *FileNetrc {
	home, err := os.UserHomeDir()
	if err != nil {
		return &FileNetrc{}
	}
	return &FileNetrc{Path: filepath.Join(home, ".netrc")}
}

func (f *FileNetrc) Lookup(host string) (string, string, bool) {
	if f.Path == "" {
		return "", "", false
	}
	n, err := netrc.Parse(f.Path)
	if err != nil {
		return "", "", false
	}
	m := n.Machine(host)
	if m == nil {
		return "", "", false
	}
	return m.Get("login"), m.Get("password"), true
}

// TerminalPrompter reads credentials from the controlling terminal. The
// password prompt suppresses echo and restores the terminal state before
// returning, also on interrupt or read failure.
type TerminalPrompter struct{}

func (TerminalPrompter) PromptUser() (string, error) {
	fmt.Print("Please enter user name: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (TerminalPrompter) PromptPassword(user string) (string, error) {
	fmt.Printf("Password for user %s: ", user)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(password), nil
}
