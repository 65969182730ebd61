// Package cache provides a generic least-recently-used cache.
//
// It backs the glyph metric cache of the Text shape, where the same runes are
// measured every time a string is laid out.
//
//	c := cache.New[rune, glyphMetrics](256)
//	m := c.GetOrCreate('A', func() glyphMetrics { return measure('A') })
package cache
