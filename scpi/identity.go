package scpi

import (
	"strings"

	"github.com/samber/lo"
)

// IdentityQuery is the standard identity query.
const IdentityQuery = "*IDN?"

// SupportedDevices lists the identity substrings of the supported power supply families.
var SupportedDevices = []string{
	"OWON,SPE",  // SPE series
	"OWON,SPM",  // SPM series
	"OWON,P4",   // P4000 series
	"OWON,P3",   // P3000 series
	"OWON,P2",   // P2000 series
	"OWON,P1",   // P1000 series
	"KIPRIM,DC", // KIPRIM DC series
	"OWON,ODP",  // ODP series
	"OWON,ODS",  // ODS series
}

// IsSupportedIdentity reports whether identity contains one of SupportedDevices.
func IsSupportedIdentity(identity string) bool {
	return lo.ContainsBy(SupportedDevices, func(prefix string) bool {
		return strings.Contains(identity, prefix)
	})
}
