package errors

import (
	"strings"
	"testing"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "5f0c6c1e-8a9b-4d21-9d7e-2b6f1c3a4e55", false},
		{"short", "w1", false},
		{"underscore", "wall_42", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"slash", "a/b", true},
		{"dot", "a.b", true},
		{"space", "a b", true},
		{"wildcard", "a*", true},
		{"control char", "a\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID("wall", tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateJoinCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"six digits", "123456", false},
		{"link code", "aB3dE9fG", false},
		{"padded", "  123456 ", false},

		{"empty", "", true},
		{"blank", "   ", true},
		{"too short", "123", true},
		{"too long", strings.Repeat("1", 33), true},
		{"dash", "123-456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJoinCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJoinCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateUploadFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"jpeg", "photo.jpg", false},
		{"video", "clip.mp4", false},
		{"many dots", "my.holiday.png", false},

		{"empty", "", true},
		{"path", "dir/photo.jpg", true},
		{"windows path", "dir\\photo.jpg", true},
		{"no extension", "photo", true},
		{"long extension", "photo.abcdefghij", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUploadFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUploadFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://abc.supabase.co", false},
		{"http", "http://localhost:54321", false},
		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"no scheme", "abc.supabase.co", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
