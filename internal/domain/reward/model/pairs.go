// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Pair is one "id:amount" token of a payload spec string.
type Pair struct {
	ID     uint32
	Amount uint32
}

// ParsePairs tokenizes a spec string of the form "a:b,c:d". Empty tokens are
// ignored. Malformed tokens are skipped and reported individually so callers
// can log them without rejecting the whole spec.
func ParsePairs(spec string) ([]Pair, []error) {
	var (
		pairs []Pair
		errs  []error
	)
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		parts := strings.Split(token, ":")
		if len(parts) != 2 {
			errs = append(errs, fmt.Errorf("%w: %q: expected id:amount", ErrMalformedEntry, token))
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 32)
		if err != nil || id == 0 {
			errs = append(errs, fmt.Errorf("%w: %q: invalid id", ErrMalformedEntry, token))
			continue
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil || amount == 0 {
			errs = append(errs, fmt.Errorf("%w: %q: invalid amount", ErrMalformedEntry, token))
			continue
		}
		pairs = append(pairs, Pair{ID: uint32(id), Amount: uint32(amount)})
	}
	return pairs, errs
}

// CountTokens reports how many non-empty comma-separated entries spec holds.
func CountTokens(spec string) int {
	n := 0
	for _, token := range strings.Split(spec, ",") {
		if strings.TrimSpace(token) != "" {
			n++
		}
	}
	return n
}

// FormatPairs is the inverse of ParsePairs for well-formed input.
func FormatPairs(pairs []Pair) string {
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(p.ID), 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(uint64(p.Amount), 10))
	}
	return b.String()
}
