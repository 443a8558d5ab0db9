// Package names canonicalizes player display names scraped from the external
// source and maps registry spellings to the spellings the source uses.
package names

import "strings"

// aliases maps a registry (canonical) name to the external source's spelling.
// It is only consulted when looking a registry player up externally.
var aliases = map[string]string{
	"Nicolas Echavarria": "Nico Echavarria",
	"Matthias Schmid":    "Matti Schmid",
	"Erik Van Rooyen":    "Erik van Rooyen",
}

// Normalize turns "Last, First" into "First Last" and trims whitespace.
// Names without a comma are returned trimmed. Casing is left alone.
func Normalize(name string) string {
	last, first, ok := strings.Cut(name, ",")
	if !ok {
		return strings.TrimSpace(name)
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}

// Alias returns the external spelling for a registry name, or the name itself.
func Alias(name string) string {
	if a, ok := aliases[name]; ok {
		return a
	}
	return name
}

// Surname returns the last whitespace-delimited token of name, or "" for a
// blank name.
func Surname(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
