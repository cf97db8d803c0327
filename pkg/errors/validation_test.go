package errors

import (
	"strings"
	"testing"
)

func TestValidateComponentName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "jquery", false},
		{"valid with dash", "my-component", false},
		{"valid with underscore", "my_component", false},
		{"valid with dot", "normalize.css", false},
		{"valid nested", "scope/inner", false},
		{"valid deeply nested", "a/b/c", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300), true},
		{"absolute", "/jquery", true},
		{"path traversal ..", "foo/../bar", true},
		{"leading ..", "../bar", true},
		{"double slash", "foo//bar", true},
		{"trailing slash", "foo/", true},
		{"dot segment", "foo/./bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComponentName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateComponentName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, EINVEP) {
				t.Errorf("ValidateComponentName(%q) code = %v, want EINVEP", tt.input, GetCode(err))
			}
		})
	}
}

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://github.com/components/jquery.git", false},
		{"http", "http://registry.example/jquery", false},
		{"git", "git://github.com/components/jquery.git", false},
		{"ssh", "ssh://git@github.com/components/jquery.git", false},
		{"scp style", "git@github.com:components/jquery.git", false},

		{"empty", "", true},
		{"bare name", "jquery", true},
		{"ftp", "ftp://example.com/jquery", true},
		{"file", "file:///tmp/jquery", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSourceURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSourceURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
