// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package world

import (
	"time"

	"github.com/ManuGH/playreward/internal/domain/reward/model"
)

// sessionDTO is the wire form of a session. Played time travels in whole
// seconds.
type sessionDTO struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Level         uint8  `json:"level"`
	PlayedSeconds int64  `json:"playedSeconds"`
	Origin        string `json:"origin"`
	Locale        string `json:"locale"`
	InWorld       bool   `json:"inWorld"`
}

func (d sessionDTO) model() model.Session {
	return model.Session{
		ID:      model.SessionID(d.ID),
		Name:    d.Name,
		Level:   d.Level,
		Played:  time.Duration(d.PlayedSeconds) * time.Second,
		Origin:  d.Origin,
		Locale:  d.Locale,
		InWorld: d.InWorld,
	}
}
