// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// PendingGrants stages due rewards between evaluation and delivery within one
// tick. Sessions are kept in first-staged order; rewards per session in
// staging order, duplicates included (one entry per crossed threshold).
type PendingGrants struct {
	order     []SessionID
	bySession map[SessionID][]RewardID
	total     int
}

// NewPendingGrants returns an empty buffer.
func NewPendingGrants() *PendingGrants {
	return &PendingGrants{bySession: make(map[SessionID][]RewardID)}
}

// Stage appends one grant of reward for session.
func (p *PendingGrants) Stage(session SessionID, reward RewardID) {
	if _, ok := p.bySession[session]; !ok {
		p.order = append(p.order, session)
	}
	p.bySession[session] = append(p.bySession[session], reward)
	p.total++
}

// Empty reports whether no grant is staged.
func (p *PendingGrants) Empty() bool { return p.total == 0 }

// Len returns the number of staged grants across all sessions.
func (p *PendingGrants) Len() int { return p.total }

// Sessions returns the number of sessions with at least one staged grant.
func (p *PendingGrants) Sessions() int { return len(p.order) }

// For returns the staged rewards of one session.
func (p *PendingGrants) For(session SessionID) []RewardID {
	return p.bySession[session]
}

// Each visits sessions in staging order.
func (p *PendingGrants) Each(fn func(session SessionID, rewards []RewardID)) {
	for _, id := range p.order {
		fn(id, p.bySession[id])
	}
}

// Reset clears the buffer for reuse.
func (p *PendingGrants) Reset() {
	p.order = p.order[:0]
	clear(p.bySession)
	p.total = 0
}
