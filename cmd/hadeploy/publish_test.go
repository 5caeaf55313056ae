package main

import (
	"reflect"
	"testing"
)

func TestSplitNames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "dashboard", []string{"dashboard"}},
		{"multiple", "dashboard,plants-integration", []string{"dashboard", "plants-integration"}},
		{"whitespace", " dashboard , plants-integration ", []string{"dashboard", "plants-integration"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitNames(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitNames(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{5368709120, "5.0 GB"},
	}

	for _, tt := range tests {
		got := formatBytes(tt.bytes)
		if got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}
