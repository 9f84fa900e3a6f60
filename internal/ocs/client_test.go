package ocs

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

const capabilitiesBody = `{
	"ocs": {
		"meta": {"status": "ok", "statuscode": 100},
		"data": {
			"capabilities": {
				"core": {
					"pollinterval": 60,
					"status": {"version": "10.0.3.3", "edition": "Community"}
				},
				"files": {"bigfilechunking": true}
			}
		}
	}
}`

const userBody = `{
	"ocs": {
		"meta": {"status": "ok", "statuscode": 100},
		"data": {"id": "alice", "display-name": "Alice Andersen"}
	}
}`

func newTestAccount(t *testing.T, serverURL string) *Account {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatal(err)
	}
	account := NewAccount()
	account.URL = u
	account.Credentials.User = "alice"
	account.Credentials.Password = "s3cret"
	return account
}

func TestBootstrapOrderAndMerge(t *testing.T) {
	var order []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("OCS-APIRequest") != "true" {
			t.Error("missing OCS-APIRequest header")
		}
		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))
		if r.Header.Get("Authorization") != wantAuth {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		switch r.URL.Path {
		case "/ocs/v1.php/cloud/capabilities":
			order = append(order, "capabilities")
			w.Write([]byte(capabilitiesBody))
		case "/ocs/v1.php/cloud/user":
			order = append(order, "user")
			w.Write([]byte(userBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	account := newTestAccount(t, server.URL)
	client := NewClient(account, nil, nil)

	if err := client.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}

	if len(order) != 2 || order[0] != "capabilities" || order[1] != "user" {
		t.Errorf("request order = %v, want capabilities then user", order)
	}
	if account.ServerVersion != "10.0.3.3" {
		t.Errorf("ServerVersion = %q", account.ServerVersion)
	}
	if account.Capabilities == nil {
		t.Fatal("capabilities not merged")
	}
	if _, ok := account.Capabilities["files"]; !ok {
		t.Error("capability map incomplete")
	}
	if account.DavUser != "alice" || account.DavDisplayName != "Alice Andersen" {
		t.Errorf("identity = %q/%q", account.DavUser, account.DavDisplayName)
	}
}

func TestBootstrapCapabilitiesFailureSkipsUserFetch(t *testing.T) {
	var userCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ocs/v1.php/cloud/capabilities":
			w.WriteHeader(http.StatusInternalServerError)
		case "/ocs/v1.php/cloud/user":
			atomic.AddInt32(&userCalls, 1)
			w.Write([]byte(userBody))
		}
	}))
	defer server.Close()

	account := newTestAccount(t, server.URL)
	client := NewClient(account, nil, nil)

	if err := client.Bootstrap(context.Background()); err == nil {
		t.Fatal("expected bootstrap failure")
	}
	if n := atomic.LoadInt32(&userCalls); n != 0 {
		t.Errorf("identity endpoint called %d times after capability failure, want 0", n)
	}
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantURL    string
		wantFolder string
		wantUser   string
	}{
		{
			name:       "plain server root",
			target:     "https://cloud.example.com",
			wantURL:    "https://cloud.example.com",
			wantFolder: "/",
		},
		{
			name:       "subfolder without dav path",
			target:     "https://cloud.example.com/remote.php/webdav/Documents",
			wantURL:    "https://cloud.example.com",
			wantFolder: "/Documents",
		},
		{
			name:       "installation prefix and trailing slash",
			target:     "https://cloud.example.com/owncloud/remote.php/webdav/Photos/",
			wantURL:    "https://cloud.example.com/owncloud",
			wantFolder: "/Photos",
		},
		{
			name:       "owncloud scheme alias",
			target:     "ownclouds://cloud.example.com/remote.php/webdav/",
			wantURL:    "https://cloud.example.com",
			wantFolder: "/",
		},
		{
			name:       "credentials stripped",
			target:     "https://bob:pw@cloud.example.com/remote.php/webdav/Work",
			wantURL:    "https://cloud.example.com",
			wantFolder: "/Work",
			wantUser:   "bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := ResolveTarget(tt.target, DefaultDavPath)
			if err != nil {
				t.Fatalf("ResolveTarget() error = %v", err)
			}
			if got := resolved.ServerURL.String(); got != tt.wantURL {
				t.Errorf("ServerURL = %q, want %q", got, tt.wantURL)
			}
			if resolved.Folder != tt.wantFolder {
				t.Errorf("Folder = %q, want %q", resolved.Folder, tt.wantFolder)
			}
			if resolved.User != tt.wantUser {
				t.Errorf("User = %q, want %q", resolved.User, tt.wantUser)
			}
			if resolved.ServerURL.User != nil {
				t.Error("credentials not stripped from server URL")
			}
		})
	}
}

func TestNestedString(t *testing.T) {
	caps := map[string]interface{}{
		"core": map[string]interface{}{
			"status": map[string]interface{}{"version": "10.0.3.3"},
		},
	}
	if got := nestedString(caps, "core", "status", "version"); got != "10.0.3.3" {
		t.Errorf("nestedString = %q", got)
	}
	if got := nestedString(caps, "core", "absent", "version"); got != "" {
		t.Errorf("missing path should yield empty, got %q", got)
	}
}
