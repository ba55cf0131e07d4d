package ota

import "testing"

func TestRemoteIsNewer(t *testing.T) {
	tests := []struct {
		local, remote string
		want          bool
	}{
		{"1.2.3", "1.2.10", true},
		{"1.10.0", "1.9.9", false},
		{"1.0.0", "1.0.0", false},
		{"0.0.0", "0.0.1", true},
		{"2.0", "2.0.1", true},  // zero-padded: 2.0.0 < 2.0.1
		{"2.0.0", "2.0", false}, // 2.0.0 vs 2.0.0
		{"1.0.0", "0.9.9", false},
		{"bad", "1.0.0", false}, // fail-safe
		{"1.0.0", "bad", false},
		{"", "1.0.0", false},
		{"1.0.0", "1.0.0-rc1", false},
	}
	for _, tt := range tests {
		if got := RemoteIsNewer(tt.local, tt.remote); got != tt.want {
			t.Errorf("RemoteIsNewer(%q, %q) = %v, want %v", tt.local, tt.remote, got, tt.want)
		}
	}
}
