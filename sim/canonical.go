package sim

import (
	"strings"
)

// Canonical returns the short form of the header of a command line, keeping a
// trailing '?' for queries. Arguments are dropped.
//
//	Canonical("VOLTage:LIMit 3.000") == "VOLT:LIM"
//	Canonical("MEASure:CURRent?")    == "MEAS:CURR?"
//	Canonical("APP:VOLT? 2")         == "APP:VOLT?"
func Canonical(line string) string {
	header, _ := splitLine(line)

	query := strings.HasSuffix(header, "?")
	header = strings.TrimSuffix(header, "?")

	parts := strings.Split(header, ":")
	for i, part := range parts {
		parts[i] = shortForm(part)
	}

	key := strings.Join(parts, ":")
	if query {
		key += "?"
	}

	return key
}

// longForms maps the upper-cased long form of each keyword the device knows to
// its short form.
var longForms = map[string]string{
	"APPLY":   "APP",
	"CURRENT": "CURR",
	"ERROR":   "ERR",
	"KEYLOCK": "KEYL",
	"LIMIT":   "LIM",
	"LOCAL":   "LOC",
	"MEASURE": "MEAS",
	"OUTPUT":  "OUTP",
	"POWER":   "POW",
	"REMOTE":  "REM",
	"SYSTEM":  "SYST",
	"VOLTAGE": "VOLT",
}

// shortForm upper-cases keyword and maps a known long form to its short form.
// Keyword matching is case-insensitive, so "Volt", "VOLTAGE" and "voltage" are all "VOLT".
func shortForm(keyword string) string {
	up := strings.ToUpper(keyword)
	if short, ok := longForms[up]; ok {
		return short
	}

	return up
}

// splitLine splits a command line into its header and argument string.
func splitLine(line string) (string, string) {
	line = strings.TrimSpace(line)

	header, args, _ := strings.Cut(line, " ")

	return header, strings.TrimSpace(args)
}
