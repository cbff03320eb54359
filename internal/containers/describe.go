package containers

import (
	"fmt"
	"strings"

	"github.com/lox/search-relevance/internal/relevance"
)

// Describe renders the relevance configuration of a container as text
func Describe(name string, cfg *relevance.Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Container: %s\n", name)
	fmt.Fprintf(&b, "  Minimum Should Match: %s\n", cfg.MinimumShouldMatch())
	fmt.Fprintf(&b, "  Tie Breaker: %g\n", cfg.TieBreaker())
	if boost, ok := cfg.PhraseMatchBoost(); ok {
		fmt.Fprintf(&b, "  Phrase Match Boost: %d\n", boost)
	} else {
		b.WriteString("  Phrase Match Boost: disabled\n")
	}
	fmt.Fprintf(&b, "  Cutoff Frequency: %g\n", cfg.CutOffFrequency())

	if cfg.FuzzinessEnabled() {
		writeFuzziness(&b, "  Fuzziness", cfg.FuzzinessConfiguration())
	} else {
		b.WriteString("  Fuzziness: disabled\n")
	}

	if cfg.PhoneticSearchEnabled() {
		b.WriteString("  Phonetic: enabled\n")
		if p := cfg.PhoneticConfiguration(); p.FuzzinessEnabled() {
			writeFuzziness(&b, "    Fuzziness", p.FuzzinessConfiguration())
		}
	} else {
		b.WriteString("  Phonetic: disabled\n")
	}

	return b.String()
}

func writeFuzziness(b *strings.Builder, label string, f relevance.FuzzinessConfiguration) {
	fmt.Fprintf(b, "%s: %s (prefix length %d, max expansions %d", label, f.Value(), f.PrefixLength(), f.MaxExpansions())
	if f.MinimumShouldMatch() != "" {
		fmt.Fprintf(b, ", minimum should match %s", f.MinimumShouldMatch())
	}
	b.WriteString(")\n")
}
