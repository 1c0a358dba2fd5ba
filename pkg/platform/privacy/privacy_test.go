package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		want string
	}{
		{"ipv4", "203.0.113.42", "203.0.113.0/24"},
		{"ipv4 with whitespace", " 10.0.0.5 ", "10.0.0.0/24"},
		{"ipv6", "2001:db8:abcd:12::1", "2001:db8:abcd::/48"},
		{"garbage", "not-an-ip", "invalid"},
		{"empty", "", "invalid"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AnonymizeIP(tc.ip))
		})
	}
}
