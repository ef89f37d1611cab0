// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package arena

import "errors"

// Sentinel errors for pool operations.
var (
	// ErrExhausted is returned when a pool cannot hand out another record,
	// either because its configured element ceiling was reached or because
	// the index space ran out.
	ErrExhausted = errors.New("pool exhausted")

	// ErrReleased is returned when allocating from a released pool.
	ErrReleased = errors.New("pool released")
)
