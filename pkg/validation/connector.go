// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for dictionary-supplied
// names.
//
// Connector names reach the preparation pipeline straight from dictionary
// files and end up in diagnostic dumps and metric labels. Validating them
// once at expansion keeps malformed entries from propagating.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxConnectorNameLength bounds a connector name, subscript included.
const MaxConnectorNameLength = 64

// connectorPattern matches valid connector names.
// Allows: an optional h/d head-dependent prefix, an uppercase type
// (letters, digits, underscore) and a lowercase subscript that may use
// digits, '*' wildcards and '^'.
var connectorPattern = regexp.MustCompile(`^[hd]?[A-Z][A-Z0-9_]*[a-z0-9*^]*$`)

// ValidateConnectorName validates a connector name.
//
// Valid names:
//   - 1-64 characters
//   - Optional leading h or d marking head or dependent
//   - Uppercase type letters, digits, underscores: S, MV, ID0
//   - Lowercase subscript with digits, '*' and '^': Ss, Ds**c, Js^
//
// Example:
//
//	if err := validation.ValidateConnectorName(name); err != nil {
//	    return fmt.Errorf("dictionary entry: %w", err)
//	}
func ValidateConnectorName(name string) error {
	if name == "" {
		return fmt.Errorf("connector name cannot be empty")
	}
	if len(name) > MaxConnectorNameLength {
		return fmt.Errorf("connector name too long: %d chars (max %d)", len(name), MaxConnectorNameLength)
	}
	if !connectorPattern.MatchString(name) {
		return fmt.Errorf("invalid connector name: %q (must be an uppercase type with optional lowercase subscript)", name)
	}
	return nil
}

// ValidateConnectorNames validates several names.
// Returns an error listing all invalid names if any fail validation.
func ValidateConnectorNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateConnectorName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid connector names: %q", invalid)
	}
	return nil
}

// SanitizeConnectorName trims surrounding whitespace and validates.
func SanitizeConnectorName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidateConnectorName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
