package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Legal suffixes stripped from normalized names, longest first so compound
// forms are removed before their components.
var legalSuffixes = []string{
	"PROPRIETARY LIMITED",
	"PTY LIMITED",
	"PTY LTD",
	"INCORPORATED",
	"CORPORATION",
	"PROPRIETARY",
	"LIMITED",
	"COMPANY",
	"CORP",
	"LTD",
	"INC",
	"CO",
}

var diacriticFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName canonicalizes a company name for comparison: uppercase,
// diacritics folded to ASCII, punctuation treated as spaces, whitespace
// collapsed, and legal suffixes stripped at token boundaries until none
// remain. The result is a fixed point: normalizing twice gives the same
// answer as normalizing once.
func NormalizeName(name string) string {
	upper := strings.ToUpper(name)
	if folded, _, err := transform.String(diacriticFolder, upper); err == nil {
		upper = folded
	}

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			b.WriteByte(' ')
		} else {
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	return stripSuffixes(collapsed)
}

func stripSuffixes(name string) string {
	for {
		stripped := name
		for _, suffix := range legalSuffixes {
			if name == suffix {
				stripped = ""
				break
			}
			if rest, ok := strings.CutSuffix(name, " "+suffix); ok {
				stripped = strings.TrimRight(rest, " ")
				break
			}
		}
		if stripped == name {
			return name
		}
		name = stripped
	}
}
