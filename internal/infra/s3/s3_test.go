package s3

import "testing"

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		raw        string
		useSSL     bool
		wantHost   string
		wantSecure bool
	}{
		{raw: "localhost:9000", wantHost: "localhost:9000"},
		{raw: "http://minio:9000/", wantHost: "minio:9000"},
		{raw: "https://s3.example.com", wantHost: "s3.example.com", wantSecure: true},
		{raw: "s3.example.com", useSSL: true, wantHost: "s3.example.com", wantSecure: true},
	}
	for _, tc := range cases {
		host, secure := splitEndpoint(tc.raw, tc.useSSL)
		if host != tc.wantHost || secure != tc.wantSecure {
			t.Fatalf("splitEndpoint(%q) = %q,%v want %q,%v", tc.raw, host, secure, tc.wantHost, tc.wantSecure)
		}
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
