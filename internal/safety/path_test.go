package safety

import (
	"path/filepath"
	"testing"
)

func TestCleanRelativePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "dashboards/plants.yaml", filepath.Join("dashboards", "plants.yaml"), false},
		{"dot segments collapse", "a/./b", filepath.Join("a", "b"), false},
		{"empty", "", "", true},
		{"current dir", ".", "", true},
		{"absolute", "/etc/passwd", "", true},
		{"parent traversal", "../secrets", "", true},
		{"nested traversal escaping", "a/../../b", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanRelativePath(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CleanRelativePath(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanRelativePath(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanRemotePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"config path", "/config/dashboards/plants.yaml", "/config/dashboards/plants.yaml", false},
		{"trailing slash", "/config/custom_components/plants/", "/config/custom_components/plants", false},
		{"redundant segments", "/config//./dashboards", "/config/dashboards", false},
		{"empty", "", "", true},
		{"relative", "dashboards/plants.yaml", "", true},
		{"root", "/", "", true},
		{"traversal", "/config/../etc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CleanRemotePath(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("CleanRemotePath(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("CleanRemotePath(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoteJoin(t *testing.T) {
	got := RemoteJoin("/home/hass", ".hadeploy/staging", "run-1", "plants.yaml")
	want := "/home/hass/.hadeploy/staging/run-1/plants.yaml"
	if got != want {
		t.Errorf("RemoteJoin = %q, want %q", got, want)
	}
}

func TestRemoteRelJoin(t *testing.T) {
	got, err := RemoteRelJoin("/home/hass/.hadeploy/staging", "plants/sensor.py")
	if err != nil {
		t.Fatalf("RemoteRelJoin failed: %v", err)
	}
	if want := "/home/hass/.hadeploy/staging/plants/sensor.py"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if _, err := RemoteRelJoin("/home/hass/.hadeploy/staging", "../escape"); err == nil {
		t.Error("expected error for traversal, got nil")
	}
}
