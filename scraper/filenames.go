package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/unidecode"
	"github.com/kennygrant/sanitize"
)

// Room is left for the extension inside the usual 255 byte limit.
const maxNameBytes = 240

var (
	reservedChars = regexp.MustCompile(`[\x00-\x1f\x7f/\\:*?"<>|]`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

var reservedDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SafeFileName removes the characters file systems reject and keeps every
// letter, so "55 Алиса в стране чудес" stays readable on disk.
func SafeFileName(name string) string {
	name = spaceRuns.ReplaceAllString(name, " ")
	name = reservedChars.ReplaceAllString(name, "")
	name = strings.Trim(name, " .")

	for len(name) > maxNameBytes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	name = strings.TrimRight(name, " .")

	if reservedDeviceNames[strings.ToUpper(name)] {
		name += "_"
	}
	return name
}

// ASCIIFileName transliterates name to ASCII before sanitizing it, for file
// systems or tools that only cope with ASCII names.
func ASCIIFileName(name string) string {
	return SafeFileName(sanitize.BaseName(unidecode.Unidecode(name)))
}
