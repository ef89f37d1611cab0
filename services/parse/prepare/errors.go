// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prepare

import (
	"errors"

	"github.com/AleutianAI/linkprep/services/parse/expand"
)

// Sentinel errors for sentence preparation.
var (
	// ErrAllocationFailed is returned when a pool cannot hand out another
	// record. The sentence has been released when this is returned.
	ErrAllocationFailed = errors.New("disjunct allocation failed")

	// ErrResourceExhausted is returned when a resource budget aborts
	// preparation. The words before Report.Completed are fully prepared;
	// the lists of later words are not usable.
	ErrResourceExhausted = errors.New("resource budget exhausted")

	// ErrSentenceReleased is returned when Prepare is handed a sentence
	// whose pools were already released.
	ErrSentenceReleased = errors.New("sentence already released")

	// ErrNoExpander is returned by New when Options carries no Expander.
	ErrNoExpander = errors.New("no expander configured")

	// ErrInvalidOptions is returned by New for out-of-range options.
	ErrInvalidOptions = errors.New("invalid prepare options")
)

// Outcome is the coarse result class of one Prepare call. It is the
// "outcome" label of the prepared-sentences counter.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeAllocationFailed  Outcome = "allocation_failed"
	OutcomeResourceExhausted Outcome = "resource_exhausted"
	OutcomeInvalid           Outcome = "invalid"
	OutcomeError             Outcome = "error"
)

// Classify maps an error returned by Prepare to its Outcome.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrAllocationFailed):
		return OutcomeAllocationFailed
	case errors.Is(err, ErrResourceExhausted):
		return OutcomeResourceExhausted
	case errors.Is(err, ErrSentenceReleased),
		errors.Is(err, ErrNoExpander),
		errors.Is(err, ErrInvalidOptions),
		errors.Is(err, expand.ErrInvalidExpression):
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}
