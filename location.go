package lattice

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/modulant/lattice/internal/utils"
)

// LocationPolicy controls which registration locations the SSRF guard
// accepts. The blocked ranges are product policy, so everything here is
// configuration rather than hardcoded.
type LocationPolicy struct {
	// AllowLoopback permits localhost / 127.0.0.0/8 / ::1 locations.
	// Meant for local development only.
	AllowLoopback bool

	// Allowlist is a set of IPs or CIDRs that are accepted even when they
	// fall in a blocked range.
	Allowlist []string

	// The matcher is built once on first use. CheckLocation runs without
	// any store lock, so the init must be safe for concurrent callers.
	matcherOnce sync.Once
	matcher     *utils.IPMatcher
}

// metadata-service hostnames that never make sense as a service location
var blockedHostnames = []string{
	"metadata.google.internal",
	"metadata.internal",
}

// CheckLocation validates a registration location against the policy.
//
// The check is syntactic: the URL must be http(s) with a hostname, and IP
// hosts must not sit in loopback, link-local or private ranges unless the
// policy allows them. DNS names are not resolved here; the health monitor
// probes them with the same bounded client soon enough.
func (p *LocationPolicy) CheckLocation(location string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("%w: unparseable location %q", ErrValidation, location)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: location scheme must be http or https, got %q", ErrValidation, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("%w: location %q has no host", ErrValidation, location)
	}

	lower := strings.ToLower(host)

	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		if p.AllowLoopback {
			return nil
		}
		return fmt.Errorf("%w: loopback host %q", ErrSsrfRejected, host)
	}

	for _, blocked := range blockedHostnames {
		if lower == blocked {
			return fmt.Errorf("%w: metadata-service host %q", ErrSsrfRejected, host)
		}
	}

	ip := net.ParseIP(host)
	if ip == nil {
		// Plain DNS name outside the blocked set.
		return nil
	}

	if p.allowlisted(ip) {
		return nil
	}

	switch {
	case ip.IsLoopback():
		if p.AllowLoopback {
			return nil
		}
		return fmt.Errorf("%w: loopback address %s", ErrSsrfRejected, ip)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		// Covers 169.254.0.0/16, i.e. the cloud metadata endpoints.
		return fmt.Errorf("%w: link-local address %s", ErrSsrfRejected, ip)
	case ip.IsUnspecified():
		return fmt.Errorf("%w: unspecified address %s", ErrSsrfRejected, ip)
	case ip.IsPrivate():
		return fmt.Errorf("%w: private address %s", ErrSsrfRejected, ip)
	}

	return nil
}

func (p *LocationPolicy) allowlisted(ip net.IP) bool {
	p.matcherOnce.Do(func() {
		p.matcher = utils.NewIPMatcher(p.Allowlist)
	})
	return p.matcher.Allow(ip.String())
}
