package mcp

import "testing"

func TestValidateDescriptorPath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"apps/shop.cue", false},
		{"apps/shop.json", false},
		{"apps/shop", false},
		{"apps/shop.yaml", true},
		{"/etc/passwd", true},
		{"../outside.cue", true},
		{"", true},
	}

	for _, tt := range tests {
		err := validateDescriptorPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateDescriptorPath(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}
