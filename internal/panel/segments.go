package panel

import (
	"fmt"
	"strings"
)

const segBlank uint8 = 0xFF

// glyphs are the active-low segment codes of every character the panel
// can show.
var glyphs = map[rune]uint8{
	'0': 0x40, '1': 0xF9, '2': 0x24, '3': 0x30, '4': 0x19,
	'5': 0x12, '6': 0x02, '7': 0xF8, '8': 0x00, '9': 0x10,
	'A': 0x08, 'C': 0x46, 'd': 0x21, 'E': 0x06, 'F': 0x0E,
	'L': 0x47, 'n': 0x2B, 'O': 0x40, 'P': 0x0C, 'r': 0x2F,
	'S': 0x12, 't': 0x07, 'U': 0x41, ' ': segBlank,
}

// Digits is the six-digit display, HEX5 first.
type Digits [6]rune

// Blank is an all-off display.
var Blank = Digits{' ', ' ', ' ', ' ', ' ', ' '}

// String renders the digits as text.
func (d Digits) String() string {
	return string(d[:])
}

// Segments returns the segment codes of HEX5..HEX0. Characters without a
// glyph are shown blank.
func (d Digits) Segments() [6]uint8 {
	var out [6]uint8
	for i, r := range d {
		code, ok := glyphs[r]
		if !ok {
			code = segBlank
		}
		out[i] = code
	}
	return out
}

// Registers packs the digits into the HEX5..4 and HEX3..0 words.
func (d Digits) Registers() (hex54 uint16, hex30 uint32) {
	s := d.Segments()
	hex54 = uint16(s[0])<<8 | uint16(s[1])
	hex30 = uint32(s[2])<<24 | uint32(s[3])<<16 | uint32(s[4])<<8 | uint32(s[5])
	return hex54, hex30
}

// fourDigits formats v on four digits with leading zeros, keeping the low
// four digits of larger values.
func fourDigits(v int) [4]rune {
	if v < 0 {
		v = 0
	}
	s := fmt.Sprintf("%04d", v%10000)
	return [4]rune{rune(s[0]), rune(s[1]), rune(s[2]), rune(s[3])}
}

// text builds Digits from a string, padding or truncating to six runes.
func text(s string) Digits {
	d := Blank
	for i, r := range []rune(s) {
		if i >= len(d) {
			break
		}
		d[i] = r
	}
	return d
}

func withTag(tag string, body [4]rune) Digits {
	d := text(tag)
	copy(d[2:], body[:])
	return d
}

// Parse turns display text back into Digits, e.g. for tests and logs.
func Parse(s string) (Digits, error) {
	if n := len([]rune(s)); n != 6 {
		return Blank, fmt.Errorf("panel: %q has %d digits, want 6", s, n)
	}
	for _, r := range s {
		if _, ok := glyphs[r]; !ok {
			return Blank, fmt.Errorf("panel: no glyph for %q", r)
		}
	}
	return text(s), nil
}

// Trimmed is the text without trailing blanks.
func (d Digits) Trimmed() string {
	return strings.TrimRight(d.String(), " ")
}
