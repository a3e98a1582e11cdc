// Package filter decides which source IPs are excluded from scoring:
// internal/private ranges and operator-whitelisted addresses or CIDR blocks.
package filter

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Filter is an immutable exclusion decision. Same inputs always yield the
// same answer; whitelist entry order is irrelevant.
type Filter struct {
	whitelist      []netip.Prefix
	ignoreInternal bool
}

func New(whitelist []netip.Prefix, ignoreInternal bool) *Filter {
	return &Filter{whitelist: whitelist, ignoreInternal: ignoreInternal}
}

// Excluded reports whether events from ip should be dropped before scoring.
func (f *Filter) Excluded(ip netip.Addr) bool {
	if !ip.IsValid() {
		return true
	}
	if f.ignoreInternal && Internal(ip) {
		return true
	}
	return f.Whitelisted(ip)
}

// Whitelisted reports whether ip matches any whitelist entry exactly or
// falls inside a whitelisted CIDR block.
func (f *Filter) Whitelisted(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, pfx := range f.whitelist {
		if pfx.Contains(ip) {
			return true
		}
	}
	return false
}

// Internal reports whether ip belongs to a private or non-routable range:
// RFC1918 IPv4, loopback, and IPv6 unique-local/link-local.
func Internal(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast()
}

// LoadWhitelist reads one IP or CIDR entry per line from path. Blank lines
// and lines starting with # are ignored; a malformed entry is logged as a
// warning and skipped, never fatal. A missing or unreadable file is an
// error for the caller to treat as a configuration problem.
func LoadWhitelist(path string) ([]netip.Prefix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whitelist %s: %w", path, err)
	}
	defer f.Close()

	var entries []netip.Prefix
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pfx, err := parseEntry(line)
		if err != nil {
			log.Warn().Str("file", path).Int("line", lineNum).Str("entry", line).
				Msg("Ignoring malformed whitelist entry")
			continue
		}
		entries = append(entries, pfx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("whitelist %s: %w", path, err)
	}

	log.Debug().Str("file", path).Int("entries", len(entries)).Msg("Whitelist loaded")
	return entries, nil
}

func parseEntry(s string) (netip.Prefix, error) {
	if strings.ContainsRune(s, '/') {
		pfx, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return pfx.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()), nil
}
