// Package langdetect decides whether a text needs translating into a
// non-Latin target language by comparing script counts.
package langdetect

import (
	"fmt"
	"strings"
	"unicode"
)

var cjkSymbols = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3000, Hi: 0x303f, Stride: 1}, // CJK symbols and punctuation
	},
}

// Full-width romaji and digits belong to CJK typesetting, not to Latin text.
var fullwidth = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0xff00, Hi: 0xffef, Stride: 1}, // halfwidth and fullwidth forms
	},
}

var scripts = map[string][]*unicode.RangeTable{
	"ja": {unicode.Han, unicode.Hiragana, unicode.Katakana, cjkSymbols, fullwidth},
	"zh": {unicode.Han, cjkSymbols, fullwidth},
	"ko": {unicode.Hangul, unicode.Han, cjkSymbols, fullwidth},
	"uk": {unicode.Cyrillic},
	"ru": {unicode.Cyrillic},
}

// Classifier compares target-script runes with Latin letters.
type Classifier struct {
	target []*unicode.RangeTable
}

// New returns a classifier for the target language code. Latin-script
// targets are rejected: the heuristic cannot tell them apart from the source.
func New(lang string) (*Classifier, error) {
	key := strings.ToLower(lang)
	if i := strings.IndexAny(key, "-_"); i > 0 {
		key = key[:i]
	}
	tables, ok := scripts[key]
	if !ok {
		return nil, fmt.Errorf("langdetect: unsupported target language %q", lang)
	}
	return &Classifier{target: tables}, nil
}

// NeedsTranslation is true only when Latin letters outnumber target-script
// runes. Text with no letters of either kind ("", "!!!", digits) yields false:
// there is no evidence of foreign text, so no translation call is made.
func (c *Classifier) NeedsTranslation(text string) bool {
	target, latin := c.count(text)
	return latin > target
}

func (c *Classifier) count(text string) (target, latin int) {
	for _, r := range text {
		switch {
		case unicode.In(r, c.target...):
			target++
		case unicode.IsLetter(r) && unicode.Is(unicode.Latin, r) && !unicode.Is(fullwidth, r):
			latin++
		}
	}
	return target, latin
}
