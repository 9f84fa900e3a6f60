// Package ocs implements the account model and the OCS status API client
// used to bootstrap server capabilities and user identity before a sync.
package ocs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nordlicht-dev/ocsync/internal/credentials"
)

// DefaultDavPath is the server-side WebDAV entry point appended to the
// target URL when absent.
const DefaultDavPath = "remote.php/webdav/"

// Account bundles the resolved server endpoint, credentials, and the
// server-reported capabilities and identity. Capabilities and identity are
// populated once during bootstrap and read-only afterwards.
type Account struct {
	// URL is the credential-free server base URL.
	URL     *url.URL
	DavPath string

	Credentials credentials.Credentials

	// Capabilities is the opaque key-value map reported by the server.
	// It is consumed by the sync engine, not interpreted here.
	Capabilities   map[string]interface{}
	ServerVersion  string
	DavUser        string
	DavDisplayName string
}

// NewAccount creates an account with the default dav path.
func NewAccount() *Account {
	return &Account{DavPath: DefaultDavPath}
}

// SetCapabilities merges the capability map into the account.
func (a *Account) SetCapabilities(caps map[string]interface{}) {
	a.Capabilities = caps
}

// DavURL returns the absolute WebDAV endpoint for the account.
func (a *Account) DavURL() string {
	base := strings.TrimSuffix(a.URL.String(), "/")
	return base + "/" + a.DavPath
}

// ResolvedTarget is the outcome of target URL normalization: the
// credential-free server URL and the remote folder below the dav root.
type ResolvedTarget struct {
	// ServerURL has userinfo stripped and any owncloud:// style scheme
	// rewritten to its http counterpart.
	ServerURL *url.URL
	// Folder starts with "/" and carries no trailing "/" unless it is
	// the root itself.
	Folder string
	// User and Password are the userinfo embedded in the target URL,
	// when present.
	User     string
	Password string
}

// ResolveTarget normalizes a raw target URL: it appends a trailing slash and
// the dav path when missing, splits the path into server URL and remote
// folder, and strips embedded credentials.
func ResolveTarget(rawTarget, davPath string) (*ResolvedTarget, error) {
	target := rawTarget
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}
	if !strings.Contains(target, davPath) {
		target += davPath
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target url %q: %w", rawTarget, err)
	}

	resolved := &ResolvedTarget{}
	if u.User != nil {
		resolved.User = u.User.Username()
		resolved.Password, _ = u.User.Password()
	}

	// owncloud:// and ownclouds:// are aliases for http(s)://
	u.Scheme = strings.Replace(u.Scheme, "owncloud", "http", 1)

	parts := strings.SplitN(u.Path, "/"+davPath, 2)
	u.Path = parts[0]

	folder := "/"
	if len(parts) == 2 {
		folder += parts[1]
	}
	if strings.HasSuffix(folder, "/") && folder != "/" {
		folder = strings.TrimSuffix(folder, "/")
	}
	resolved.Folder = folder

	u.User = nil
	resolved.ServerURL = u

	return resolved, nil
}
