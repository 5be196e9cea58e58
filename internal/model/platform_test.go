package model

import "testing"

func TestParsePlatform(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Platform
		known   bool
		wantErr bool
	}{
		{"googleads", "googleads", GoogleAds, true, false},
		{"meta", "meta", MetaAds, true, false},
		{"mixed case", "GoogleAds", GoogleAds, true, false},
		{"whitespace", "  meta  ", MetaAds, true, false},
		{"custom platform", "tiktok", Platform("tiktok"), false, false},
		{"empty", "", "", false, true},
		{"only spaces", "   ", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlatform(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePlatform(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got != tt.want {
				t.Errorf("ParsePlatform(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if got.Known() != tt.known {
				t.Errorf("Known(%q) = %v, want %v", got, got.Known(), tt.known)
			}
		})
	}
}
