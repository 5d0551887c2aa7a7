// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "fmt"

// qualityColors are the client colors per item quality, ARGB.
var qualityColors = [...]uint32{
	0xff9d9d9d, // poor
	0xffffffff, // common
	0xff1eff00, // uncommon
	0xff0070dd, // rare
	0xffa335ee, // epic
	0xffff8000, // legendary
	0xffe6cc80, // artifact
	0xffe6cc80, // heirloom
}

// Link renders the chat hyperlink for the item in locale.
func (t ItemTemplate) Link(locale string) string {
	color := qualityColors[1]
	if int(t.Quality) < len(qualityColors) {
		color = qualityColors[t.Quality]
	}
	return fmt.Sprintf("|c%08x|Hitem:%d:0:0:0:0:0:0:0:0|h[%s]|h|r", color, t.ID, t.LocalizedName(locale))
}
