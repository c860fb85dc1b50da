package urlguard

import (
	"net/netip"
	"net/url"
	"strings"
)

// Two distinct trust boundaries live here. Do not merge them:
//
// - Control URLs come back from a voice provider and are about to receive an
//   authenticated, side-effecting POST. They must point at that provider's
//   own infrastructure, nothing else.
// - Webhook URLs are configured by tenants and receive our payloads. They may
//   point anywhere on the public internet, but never into our own network.
//
// Both predicates are total: a malformed URL is invalid, never an error.

// controlTrustedDomain is the only domain live-control commands may target.
const controlTrustedDomain = "vapi.ai"

// IsTrustedControlURL reports whether raw is an HTTPS URL whose host is the
// provider's control domain or a subdomain of it.
func IsTrustedControlURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	return host == controlTrustedDomain || strings.HasSuffix(host, "."+controlTrustedDomain)
}

// blockedWebhookPrefixes are address ranges an outbound webhook must never
// reach: loopback, RFC1918 private space, and link-local (cloud metadata).
var blockedWebhookPrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("::1/128"),
}

// IsSafeWebhookURL reports whether raw is acceptable as a tenant-configured
// webhook destination: HTTPS, and not loopback or private address space.
//
// Hostname-based targets that resolve to private space are a separate
// DNS-rebinding concern handled at delivery time; this predicate covers the
// literal forms.
func IsSafeWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return false
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		for _, p := range blockedWebhookPrefixes {
			if p.Contains(addr.Unmap()) {
				return false
			}
		}
	}
	return true
}
