// Package privacy holds helpers for keeping personal data out of logs.
package privacy

import (
	"net"
	"strings"
)

// AnonymizeIP reduces an IP address to a network prefix safe for logging.
// IPv4 keeps the first three octets; IPv6 keeps the first three groups.
// Unparseable input is returned as "invalid" rather than leaking the raw
// value.
func AnonymizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return net.IPv4(v4[0], v4[1], v4[2], 0).String() + "/24"
	}

	masked := parsed.Mask(net.CIDRMask(48, 128))
	return masked.String() + "/48"
}
