package middleware

import (
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestRemoteAddrExtractor_ExtractsIP(t *testing.T) {
	extractor := &RemoteAddrExtractor{}

	testCases := []struct {
		name       string
		remoteAddr string
		expected   string
	}{
		{"IPv4 with port", "192.168.1.1:54321", "192.168.1.1"},
		{"IPv4 no port", "127.0.0.1", "127.0.0.1"},
		{"IPv6 with port", "[::1]:8080", "::1"},
		{"IPv6 no port", "[2001:db8::1]", "2001:db8::1"},
		{"IPv6 expanded", "[2001:db8:0:0:0:0:0:1]:9000", "2001:db8::1"},
		{"IPv4-mapped IPv6", "[::ffff:10.0.0.1]:80", "10.0.0.1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr

			ip, err := extractor.ExtractIP(req)
			if err != nil {
				t.Fatalf("ExtractIP() returned unexpected error: %v", err)
			}
			if ip != tc.expected {
				t.Errorf("ExtractIP() = %q, expected %q", ip, tc.expected)
			}
		})
	}
}

func TestRemoteAddrExtractor_InvalidAddr(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "not-an-ip:80"

	if _, err := (&RemoteAddrExtractor{}).ExtractIP(req); err == nil {
		t.Error("ExtractIP() expected error for a hostname")
	}
}

func trustedLoopback() TrustedProxyConfig {
	return TrustedProxyConfig{
		Enabled:      true,
		AllowedCIDRs: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}
}

func TestTrustedProxyExtractor_ExtractIP(t *testing.T) {
	testCases := []struct {
		name       string
		config     TrustedProxyConfig
		remoteAddr string
		xff        string
		xRealIP    string
		expected   string
	}{
		{"trusted proxy uses XFF", trustedLoopback(), "10.1.2.3:443", "203.0.113.7", "", "203.0.113.7"},
		{"first XFF entry wins", trustedLoopback(), "10.1.2.3:443", "203.0.113.7, 10.0.0.2, 10.0.0.3", "", "203.0.113.7"},
		{"XFF takes priority over X-Real-IP", trustedLoopback(), "10.1.2.3:443", "203.0.113.7", "198.51.100.1", "203.0.113.7"},
		{"X-Real-IP fallback", trustedLoopback(), "10.1.2.3:443", "", "198.51.100.1", "198.51.100.1"},
		{"invalid XFF falls through to X-Real-IP", trustedLoopback(), "10.1.2.3:443", "garbage", "198.51.100.1", "198.51.100.1"},
		{"no headers uses RemoteAddr", trustedLoopback(), "10.1.2.3:443", "", "", "10.1.2.3"},
		{"IPv6 client behind proxy", trustedLoopback(), "10.1.2.3:443", "2001:db8::7", "", "2001:db8::7"},
		{"untrusted peer headers ignored", trustedLoopback(), "192.0.2.50:5000", "203.0.113.7", "198.51.100.1", "192.0.2.50"},
		{"disabled config ignores headers", TrustedProxyConfig{}, "10.1.2.3:443", "203.0.113.7", "", "10.1.2.3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.xRealIP != "" {
				req.Header.Set("X-Real-IP", tc.xRealIP)
			}

			ip, err := NewTrustedProxyExtractor(tc.config).ExtractIP(req)
			if err != nil {
				t.Fatalf("ExtractIP() returned unexpected error: %v", err)
			}
			if ip != tc.expected {
				t.Errorf("ExtractIP() = %q, expected %q", ip, tc.expected)
			}
		})
	}
}

func TestParseFirstIP(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"192.168.1.1", "192.168.1.1"},
		{"192.168.1.1, 10.0.0.1", "192.168.1.1"},
		{" 2001:db8::1 ,10.0.0.1", "2001:db8::1"},
		{"invalid, 10.0.0.1", ""},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := parseFirstIP(tc.input); got != tc.expected {
			t.Errorf("parseFirstIP(%q) = %q, expected %q", tc.input, got, tc.expected)
		}
	}
}

func TestTrustedProxyConfig_IsTrusted(t *testing.T) {
	config := TrustedProxyConfig{
		Enabled: true,
		AllowedCIDRs: []netip.Prefix{
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("2001:db8::/32"),
		},
	}

	testCases := []struct {
		remoteAddr string
		expected   bool
	}{
		{"10.20.30.40:1234", true},
		{"10.20.30.40", true},
		{"[2001:db8::5]:443", true},
		{"192.168.1.1:1234", false},
		{"garbage", false},
	}

	for _, tc := range testCases {
		if got := config.IsTrusted(tc.remoteAddr); got != tc.expected {
			t.Errorf("IsTrusted(%q) = %v, expected %v", tc.remoteAddr, got, tc.expected)
		}
	}
}

func TestLoadTrustedProxyConfig(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_TRUST_PROXY", "")
		config, err := LoadTrustedProxyConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.Enabled || len(config.AllowedCIDRs) != 0 {
			t.Errorf("expected disabled empty config, got %+v", config)
		}
	})

	t.Run("single IPs and CIDRs", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
		t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "192.168.1.1, 10.0.0.0/8,,2001:db8::1")
		config, err := LoadTrustedProxyConfig()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []netip.Prefix{
			netip.MustParsePrefix("192.168.1.1/32"),
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("2001:db8::1/128"),
		}
		if len(config.AllowedCIDRs) != len(want) {
			t.Fatalf("AllowedCIDRs = %v, want %v", config.AllowedCIDRs, want)
		}
		for i := range want {
			if config.AllowedCIDRs[i] != want[i] {
				t.Errorf("AllowedCIDRs[%d] = %v, want %v", i, config.AllowedCIDRs[i], want[i])
			}
		}
	})

	t.Run("enabled without proxies", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
		t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "")
		if _, err := LoadTrustedProxyConfig(); err == nil {
			t.Error("expected error when no proxies are configured")
		}
	})

	t.Run("invalid entry", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_TRUST_PROXY", "true")
		t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8,not-an-ip")
		if _, err := LoadTrustedProxyConfig(); err == nil {
			t.Error("expected error for invalid entry")
		}
	})
}
