package authn

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/gaissmai/bart"

	"github.com/dspace/dspace-rest/internal/config"
)

// ipGroup is one special group and the client networks it covers.
type ipGroup struct {
	name   string
	ranges *bart.Lite
}

// SpecialGroupMatcher grants groups to requests based on their client address.
type SpecialGroupMatcher struct {
	groups []ipGroup
}

// NewSpecialGroupMatcher parses the configured ranges. Entries may be single
// addresses or CIDR prefixes.
func NewSpecialGroupMatcher(cfgs []config.SpecialGroupConfig) (*SpecialGroupMatcher, error) {
	m := &SpecialGroupMatcher{}
	for _, cfg := range cfgs {
		if cfg.Group == "" {
			return nil, fmt.Errorf("special group without a name")
		}
		lite := &bart.Lite{}
		for _, r := range cfg.Ranges {
			p, err := parseAddrOrPrefix(r)
			if err != nil {
				return nil, fmt.Errorf("special group %s: %w", cfg.Group, err)
			}
			lite.Insert(p)
		}
		m.groups = append(m.groups, ipGroup{name: cfg.Group, ranges: lite})
	}
	return m, nil
}

// Match returns the groups whose ranges contain addr, sorted by name.
func (m *SpecialGroupMatcher) Match(addr netip.Addr) []string {
	if m == nil || !addr.IsValid() {
		return nil
	}
	addr = addr.Unmap()
	var out []string
	for _, g := range m.groups {
		if g.ranges.Contains(addr) {
			out = append(out, g.name)
		}
	}
	sort.Strings(out)
	return out
}

// MatchRemote parses a "host:port" or bare address and matches it.
func (m *SpecialGroupMatcher) MatchRemote(remote string) []string {
	addr, err := parseOptionalPort(remote)
	if err != nil {
		return nil
	}
	return m.Match(addr)
}

func parseAddrOrPrefix(s string) (netip.Prefix, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func parseOptionalPort(addr string) (netip.Addr, error) {
	ap, err := netip.ParseAddrPort(addr)
	if err == nil {
		return ap.Addr(), nil
	}
	return netip.ParseAddr(addr)
}
