package ocs

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/nordlicht-dev/ocsync/internal/logging"
	"github.com/nordlicht-dev/ocsync/internal/options"
	"github.com/nordlicht-dev/ocsync/internal/utils"
)

const (
	capabilitiesEndpoint = "ocs/v1.php/cloud/capabilities"
	currentUserEndpoint  = "ocs/v1.php/cloud/user"

	requestTimeout = 5 * time.Minute
)

// Client talks to the OCS status API of the account's server.
type Client struct {
	account *Account
	http    *http.Client
	logger  logging.Logger
	traceID string
}

// NewClient creates an OCS client for the account. A nil transport uses the
// default transport.
func NewClient(account *Account, transport http.RoundTripper, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	traceID := uuid.New().String()
	return &Client{
		account: account,
		http: &http.Client{
			Transport: transport,
			Timeout:   requestTimeout,
		},
		logger:  logger.WithTraceID(traceID),
		traceID: traceID,
	}
}

// NewTransport builds the HTTP transport for a sync run: optional TLS trust
// override and optional proxy from a "scheme://host:port" spec.
func NewTransport(trustSSL bool, proxySpec string) (*http.Transport, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}
	if trustSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if proxySpec != "" {
		scheme, host, port, err := options.SplitProxySpec(proxySpec)
		if err != nil {
			return nil, err
		}
		proxyURL := &url.URL{
			Scheme: scheme,
			Host:   fmt.Sprintf("%s:%d", host, port),
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return transport, nil
}

// ocsEnvelope is the wrapper every OCS response nests its payload in.
type ocsEnvelope struct {
	OCS struct {
		Data json.RawMessage `json:"data"`
	} `json:"ocs"`
}

// getJSON issues one GET against an OCS endpoint and returns the nested
// data document.
func (c *Client) getJSON(ctx context.Context, endpoint string) (json.RawMessage, error) {
	base := c.account.URL.String()
	if base != "" && base[len(base)-1] != '/' {
		base += "/"
	}
	reqURL := base + endpoint + "?format=json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("OCS-APIRequest", "true")
	req.Header.Set("Accept", "application/json")
	if c.account.Credentials.User != "" {
		req.SetBasicAuth(c.account.Credentials.User, c.account.Credentials.Password)
	}

	c.logger.Debug("OCS request", logging.F("endpoint", endpoint))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s for %s", resp.Status, endpoint)
	}

	var envelope ocsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", endpoint, err)
	}

	c.logger.Debug("OCS response",
		logging.F("endpoint", endpoint),
		logging.F("status", resp.StatusCode),
		logging.F("duration_ms", time.Since(start).Milliseconds()),
	)

	return envelope.OCS.Data, nil
}

// FetchCapabilities retrieves the server capability map and merges it into
// the account, extracting the server version from core.status.version.
func (c *Client) FetchCapabilities(ctx context.Context) error {
	data, err := c.getJSON(ctx, capabilitiesEndpoint)
	if err != nil {
		return err
	}

	var payload struct {
		Capabilities map[string]interface{} `json:"capabilities"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decoding capabilities: %w", err)
	}

	c.account.SetCapabilities(payload.Capabilities)
	c.account.ServerVersion = nestedString(payload.Capabilities, "core", "status", "version")

	c.logger.Debug("server capabilities received",
		logging.F("serverVersion", c.account.ServerVersion),
		logging.F("capabilityKeys", len(payload.Capabilities)),
	)
	return nil
}

// FetchCurrentUser retrieves the authenticated user's stable id and display
// name and merges them into the account.
func (c *Client) FetchCurrentUser(ctx context.Context) error {
	data, err := c.getJSON(ctx, currentUserEndpoint)
	if err != nil {
		return err
	}

	var payload struct {
		ID          string `json:"id"`
		DisplayName string `json:"display-name"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decoding user info: %w", err)
	}

	c.account.DavUser = payload.ID
	c.account.DavDisplayName = payload.DisplayName

	c.logger.Debug("user identity received", logging.F("user", payload.ID))
	return nil
}

// Bootstrap performs the two pre-sync exchanges in strict order: server
// capabilities first, then the authenticated user's identity. A failing
// capabilities fetch aborts before the identity request is ever issued.
func (c *Client) Bootstrap(ctx context.Context) error {
	if err := c.FetchCapabilities(ctx); err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConnectFailed,
			fmt.Sprintf("error connecting to server: %v", err)).
			WithContext("traceId", c.traceID).
			Build())
	}
	if err := c.FetchCurrentUser(ctx); err != nil {
		return utils.NewAppError(utils.NewCLIError(utils.ErrCodeConnectFailed,
			fmt.Sprintf("error fetching user identity: %v", err)).
			WithContext("traceId", c.traceID).
			Build())
	}
	return nil
}

// nestedString walks a nested string-keyed map and returns the string at the
// end of the key path, or "".
func nestedString(m map[string]interface{}, keys ...string) string {
	var current interface{} = m
	for _, key := range keys {
		node, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = node[key]
	}
	s, _ := current.(string)
	return s
}
