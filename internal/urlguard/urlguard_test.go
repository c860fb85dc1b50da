package urlguard

import "testing"

func TestIsTrustedControlURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://vapi.ai/x", true},
		{"https://sub.vapi.ai/x", true},
		{"https://aws-us-west-2-production1-phone-call-websocket.vapi.ai/call/abc/control", true},
		{"https://VAPI.AI/x", true},
		{"http://vapi.ai/x", false},
		{"https://vapi.ai.evil.com/x", false},
		{"https://evilvapi.ai/x", false},
		{"https://example.com/x", false},
		{"ftp://vapi.ai/x", false},
		{"", false},
		{"not a url", false},
		{"https://", false},
	}
	for _, tc := range cases {
		if got := IsTrustedControlURL(tc.url); got != tc.want {
			t.Fatalf("IsTrustedControlURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestIsSafeWebhookURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://api.example.com/webhook", true},
		{"https://hooks.example.com:8443/x", true},
		{"http://example.com", false},
		{"https://localhost/x", false},
		{"https://sub.localhost/x", false},
		{"https://127.0.0.1/x", false},
		{"https://127.8.8.8/x", false},
		{"https://[::1]/x", false},
		{"https://10.0.0.5/x", false},
		{"https://172.20.1.1/x", false},
		{"https://172.15.0.1/x", true},
		{"https://172.32.0.1/x", true},
		{"https://192.168.1.1/x", false},
		{"https://169.254.169.254/x", false},
		{"https://8.8.8.8/x", true},
		{"", false},
		{"not a url", false},
	}
	for _, tc := range cases {
		if got := IsSafeWebhookURL(tc.url); got != tc.want {
			t.Fatalf("IsSafeWebhookURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
