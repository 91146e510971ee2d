// Faultline - Distributed Issue Ingestion and Tracking
// Copyright 2026 Faultline Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/faultlinehq/faultline

// Package fingerprint derives a stable identity for an error occurrence.
//
// Two reports of the same logical error on the same component must hash to
// the same fingerprint even when the message text differs cosmetically
// (embedded ids, timestamps, memory addresses). The generator is a pure
// function: no I/O, no process state, stable across restarts.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Length of the emitted fingerprint in hex characters. A truncated SHA-256
// keeps keys short while leaving collisions vanishingly unlikely.
const Length = 32

var (
	hexAddrRe   = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	uuidRe      = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	timestampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	digitsRe    = regexp.MustCompile(`\d+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// Generate returns the fingerprint for one error occurrence.
//
// errorType and component participate verbatim; message is normalized
// first so volatile fragments do not split one logical error into many
// issues. stackLocation should be the innermost frame of interest
// (file:function), not a full trace.
func Generate(errorType, component, message, stackLocation string) string {
	parts := []string{
		strings.TrimSpace(errorType),
		strings.TrimSpace(component),
		Normalize(message),
		strings.TrimSpace(stackLocation),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])[:Length]
}

// Normalize strips the volatile fragments of an error message: memory
// addresses, UUIDs, timestamps, and numeric ids. The replacements keep a
// placeholder so "user 42 missing" and "user missing" stay distinct.
func Normalize(message string) string {
	m := strings.ToLower(strings.TrimSpace(message))
	m = uuidRe.ReplaceAllString(m, "<uuid>")
	m = timestampRe.ReplaceAllString(m, "<ts>")
	m = hexAddrRe.ReplaceAllString(m, "<addr>")
	m = digitsRe.ReplaceAllString(m, "<n>")
	m = spaceRe.ReplaceAllString(m, " ")
	return m
}
