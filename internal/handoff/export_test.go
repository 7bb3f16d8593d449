// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package handoff

// HoldsResources exposes holdsResources to the external test package.
func (a *Attempt) HoldsResources() bool { return a.holdsResources() }
