// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package i18n

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/playreward/internal/domain/reward/ports"
)

func mustLoad(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load()
	require.NoError(t, err)
	return c
}

func TestLoad_EmbeddedLocales(t *testing.T) {
	c := mustLoad(t)
	assert.Equal(t, []string{"en-US", "ru-RU"}, c.Locales())
}

func TestText_English(t *testing.T) {
	c := mustLoad(t)

	assert.Equal(t, "Reward for online 1 hour", c.Text("en-US", ports.TextMailSubject, "1 hour"))
	assert.Equal(t,
		"Hi, Arthas!\nYou been playing on our server for over 2 hours. Please accept a gift from us.",
		c.Text("en-US", ports.TextMailBody, "Arthas", "2 hours"))
	assert.Equal(t, "Not enough room in the bag. Send via mail", c.Text("en-US", ports.TextNotEnoughSpace))
	assert.Equal(t, "You were rewarded for online (1 hour). 1 of 3 items are in your bag, the rest was sent via mail.",
		c.Text("en-US", ports.TextPartlyDirect, "1 hour", 1, 3))
	assert.Equal(t, "[Hearthstone]. Count: 2. Left: 5 minutes",
		c.Text("en-US", ports.TextNextItem, "[Hearthstone]", uint32(2), "5 minutes"))
}

func TestText_RussianAndFallback(t *testing.T) {
	c := mustLoad(t)

	assert.Equal(t, "Вы были вознаграждены за онлайн (1 час).", c.Text("ruRU", ports.TextRewardedInGame, "1 час"))
	assert.Equal(t, "Награда за онлайн 1 час", c.Text("ru", ports.TextMailSubject, "1 час"))
	assert.Equal(t, "You were rewarded for online (1 hour).", c.Text("deDE", ports.TextRewardedInGame, "1 hour"))
	assert.Equal(t, "You were rewarded for online (1 hour).", c.Text("", ports.TextRewardedInGame, "1 hour"))
}

func TestDuration(t *testing.T) {
	c := mustLoad(t)

	tests := []struct {
		locale string
		d      time.Duration
		want   string
	}{
		{"en-US", 0, "0 seconds"},
		{"en-US", time.Second, "1 second"},
		{"en-US", time.Hour, "1 hour"},
		{"en-US", 90 * time.Minute, "1 hour 30 minutes"},
		{"en-US", 26*time.Hour + 5*time.Second, "1 day 2 hours 5 seconds"},
		{"en-US", 1500 * time.Millisecond, "1 second"},
		{"ru-RU", time.Hour, "1 час"},
		{"ru-RU", 3 * time.Hour, "3 часа"},
		{"ru-RU", 5 * time.Hour, "5 часов"},
		{"ru-RU", 21 * time.Minute, "21 минута"},
		{"ru-RU", 2*24*time.Hour + 11*time.Minute, "2 дня 11 минут"},
	}
	for _, tt := range tests {
		t.Run(tt.locale+"/"+tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, c.Duration(tt.locale, tt.d))
		})
	}
}

func TestMatch(t *testing.T) {
	c := mustLoad(t)

	assert.Equal(t, "ru-RU", c.Match("ruRU").String())
	assert.Equal(t, "ru-RU", c.Match("ru_RU").String())
	assert.Equal(t, "en-US", c.Match("enGB").String())
	assert.Equal(t, "en-US", c.Match("not a locale").String())
}

func TestLoadFS_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{"empty", fstest.MapFS{}, "no catalog files"},
		{
			"locale mismatch",
			fstest.MapFS{"locales/en-US/a.yaml": {Data: []byte("locale: ru-RU\nmessages: {}\n")}},
			"must match path locale",
		},
		{
			"missing base",
			fstest.MapFS{"locales/ru-RU/a.yaml": {Data: []byte("locale: ru-RU\nmessages: {}\n")}},
			"base locale",
		},
		{
			"plural without other",
			fstest.MapFS{"locales/en-US/a.yaml": {Data: []byte("locale: en-US\nplurals:\n  k:\n    one: \"%d x\"\n")}},
			"missing \"other\"",
		},
		{
			"bad yaml",
			fstest.MapFS{"locales/en-US/a.yaml": {Data: []byte("locale: [")}},
			"parse catalog",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.files)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
