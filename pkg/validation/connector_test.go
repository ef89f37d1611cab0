package validation

import (
	"strings"
	"testing"
)

func TestValidateConnectorName(t *testing.T) {
	tests := []struct {
		name      string
		connector string
		wantErr   bool
	}{
		// Valid names
		{"single type", "S", false},
		{"two letter type", "MV", false},
		{"subscript", "Ss", false},
		{"wildcard subscript", "Ds**c", false},
		{"caret", "Js^", false},
		{"digit in type", "ID0", false},
		{"head prefix", "hS", false},
		{"dependent prefix", "dWd", false},
		{"underscore", "LL_X", false},
		{"max length", "S" + strings.Repeat("a", 63), false},

		// Invalid names
		{"empty", "", true},
		{"lowercase only", "ss", true},
		{"leading digit", "1S", true},
		{"space", "S s", true},
		{"direction included", "S+", true},
		{"multi marker included", "@S", true},
		{"uppercase after subscript", "SsX", true},
		{"newline", "S\n", true},
		{"too long", "S" + strings.Repeat("a", 64), true},
		{"bad prefix", "xS", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConnectorName(tt.connector)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConnectorName(%q) error = %v, wantErr %v", tt.connector, err, tt.wantErr)
			}
		})
	}
}

func TestValidateConnectorNames(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		wantErr bool
	}{
		{"all valid", []string{"S", "O", "Ds"}, false},
		{"one invalid", []string{"S", "bad!", "O"}, true},
		{"all invalid", []string{"s", "o"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConnectorNames(tt.names)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConnectorNames(%v) error = %v, wantErr %v", tt.names, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeConnectorName(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"Ss", "Ss", false},
		{"  MV  ", "MV", false},
		{"\tO\n", "O", false},
		{"", "", true},
		{"   ", "", true},
		{"s s", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SanitizeConnectorName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeConnectorName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeConnectorName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
