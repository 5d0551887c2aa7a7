// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ports

import "time"

// Localizer renders session-facing texts.
type Localizer interface {
	// Text renders the message key in locale with printf-style args.
	Text(locale, key string, args ...any) string
	// Duration renders d as localized full text ("1 hour 30 minutes").
	Duration(locale string, d time.Duration) string
}

// Message keys rendered through Localizer.Text.
const (
	TextMailSubject    = "reward.mail.subject"    // threshold
	TextMailBody       = "reward.mail.body"       // name, threshold
	TextRewardedMail   = "reward.rewarded.mail"   // threshold
	TextRewardedInGame = "reward.rewarded.ingame" // threshold
	TextNotEnoughSpace = "reward.not_enough_space"
	TextPartlyDirect   = "reward.partly_direct"   // threshold, items stored, items total
	TextNextItem       = "reward.next.item"       // item link, count, left
	TextNextReputation = "reward.next.reputation" // faction, amount, left
	TextAtNextTick     = "reward.next.at_tick"
)
