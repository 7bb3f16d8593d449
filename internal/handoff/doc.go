// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package handoff resolves "return to app" actions.
//
// A Resolver classifies the caller's platform, tries to hand control to the
// native application through a custom scheme (or Android intent), and falls
// back to a web destination when the hosting page does not move to the
// background within the platform's timeout.
//
// Each call to Resolve creates an Attempt that exclusively owns its timer,
// visibility subscription and (on iOS) hidden navigation frame. Every
// attempt ends in exactly one terminal state:
//
//	created -> handoff_initiated -> confirmed
//	                             -> fallback_dispatched
//	(any non-terminal)           -> aborted   (page torn down)
//
// and releases all of its resources when it gets there.
package handoff
