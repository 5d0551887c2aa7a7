// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// AnonymousID identifies callers when the API runs without a token.
const AnonymousID = "anonymous"

// Principal is the authenticated identity of an admin caller.
type Principal struct {
	// ID is stable for a given token and safe to log.
	ID string
}

// NewPrincipal derives a principal from the presented token. An empty token
// yields the anonymous principal.
func NewPrincipal(token string) *Principal {
	if token == "" {
		return &Principal{ID: AnonymousID}
	}
	hash := sha256.Sum256([]byte(token))
	return &Principal{ID: "t_" + hex.EncodeToString(hash[:])[:16]}
}
