package server

import (
	"fmt"
	"net/url"
	"strings"
)

// redirectTarget validates the post-login redirect. An empty value falls
// back to the UI. Anything else must be an absolute http(s) URL whose host is
// the server, the UI or one of the configured extra hosts.
func (h *Handlers) redirectTarget(raw string) (string, error) {
	if raw == "" {
		if h.cfg.UIURL != "" {
			return h.cfg.UIURL, nil
		}
		return h.cfg.ServerURL, nil
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrRedirectNotAllowed, raw)
	}

	host := strings.ToLower(u.Hostname())
	for _, allowed := range h.allowedRedirectHosts() {
		if host == allowed {
			return u.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrRedirectNotAllowed, raw)
}

func (h *Handlers) allowedRedirectHosts() []string {
	candidates := append([]string{h.cfg.ServerURL, h.cfg.UIURL}, h.cfg.Redirect.AllowedHosts...)
	hosts := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if host := hostOf(c); host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts
}

// hostOf accepts a URL or a bare host name.
func hostOf(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "//" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
