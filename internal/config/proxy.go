package config

import (
	"net/url"
	"os"
	"strconv"

	"tgup/internal/domain"
)

// Proxy environment variables, checked in order; first present wins.
var proxyEnvVars = []string{
	"TGUP_PROXY",
	"HTTPS_PROXY",
	"HTTP_PROXY",
}

// ResolveProxy parses the explicit proxy string, or falls back to the
// environment chain when it is empty. An empty result everywhere means
// no proxy. A non-empty string missing scheme, host or port is a
// configuration error, never a silent default.
func ResolveProxy(explicit string) (domain.ProxySpec, error) {
	raw := explicit
	if raw == "" {
		raw = proxyFromEnvironment()
	}
	if raw == "" {
		return domain.ProxySpec{Kind: domain.ProxyNone}, nil
	}
	return parseProxy(raw)
}

func proxyFromEnvironment() string {
	for _, name := range proxyEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func parseProxy(raw string) (domain.ProxySpec, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return domain.ProxySpec{}, newProxyError(raw, "not a valid URL")
	}
	if u.Scheme == "" || u.Hostname() == "" || u.Port() == "" {
		return domain.ProxySpec{}, newProxyError(raw, "scheme, host and port are all required")
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		return domain.ProxySpec{}, newProxyError(raw, "invalid port")
	}

	switch u.Scheme {
	case "mtproxy":
		return domain.ProxySpec{
			Kind:   domain.ProxyMTProxy,
			Host:   u.Hostname(),
			Port:   port,
			Secret: u.User.Username(),
		}, nil
	case "http", "socks4", "socks5":
		kinds := map[string]domain.ProxyKind{
			"http":   domain.ProxyHTTP,
			"socks4": domain.ProxySOCKS4,
			"socks5": domain.ProxySOCKS5,
		}
		password, _ := u.User.Password()
		return domain.ProxySpec{
			Kind:     kinds[u.Scheme],
			Host:     u.Hostname(),
			Port:     port,
			TLS:      true,
			Username: u.User.Username(),
			Password: password,
		}, nil
	default:
		return domain.ProxySpec{}, newProxyError(raw, "unsupported proxy type: "+u.Scheme)
	}
}

func newProxyError(spec, reason string) *domain.ProxyConfigError {
	return &domain.ProxyConfigError{Spec: spec, Reason: reason}
}
