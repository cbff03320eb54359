package relevance

import "reflect"

// FuzzinessConfiguration describes fuzzy matching applied to a text query.
type FuzzinessConfiguration interface {
	// Value is the allowed edit distance, e.g. "AUTO", "1" or "2"
	Value() string
	// PrefixLength is the number of leading characters that must match exactly
	PrefixLength() int
	// MaxExpansions caps the number of terms a fuzzy term expands to
	MaxExpansions() int
	// MinimumShouldMatch applies to the fuzzy clause
	MinimumShouldMatch() string
}

// PhoneticConfiguration describes phonetic matching applied to a text query.
type PhoneticConfiguration interface {
	// FuzzinessConfiguration returns the fuzziness applied to phonetic terms, or nil
	FuzzinessConfiguration() FuzzinessConfiguration
	// FuzzinessEnabled reports whether phonetic terms are also matched fuzzily
	FuzzinessEnabled() bool
}

// Config holds the relevance tuning of a search request container.
// It is immutable once built and safe for concurrent use.
type Config struct {
	minimumShouldMatch string
	tieBreaker         float64
	phraseMatchBoost   any
	cutOffFrequency    any
	fuzziness          FuzzinessConfiguration
	phonetic           PhoneticConfiguration
}

// Option sets an optional part of a Config
type Option func(*Config)

// WithFuzziness enables fuzzy matching. A nil configuration leaves it disabled.
func WithFuzziness(f FuzzinessConfiguration) Option {
	return func(c *Config) {
		if !isNil(f) {
			c.fuzziness = f
		}
	}
}

// WithPhonetic enables phonetic matching. A nil configuration leaves it disabled.
func WithPhonetic(p PhoneticConfiguration) Option {
	return func(c *Config) {
		if !isNil(p) {
			c.phonetic = p
		}
	}
}

// New creates a relevance configuration. Values are stored as given and never
// validated; phraseMatchBoost may be nil to disable phrase boosting.
// phraseMatchBoost and cutOffFrequency accept any numeric or numeric string
// value and are coerced when read. Pointer inputs are copied, so writes through
// them after New returns do not change the configuration.
func New(minimumShouldMatch string, tieBreaker float64, phraseMatchBoost any, cutOffFrequency any, opts ...Option) *Config {
	c := &Config{
		minimumShouldMatch: minimumShouldMatch,
		tieBreaker:         tieBreaker,
		phraseMatchBoost:   snapshot(phraseMatchBoost),
		cutOffFrequency:    snapshot(cutOffFrequency),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinimumShouldMatch returns the minimum should match clause of the text query
func (c *Config) MinimumShouldMatch() string {
	return c.minimumShouldMatch
}

// TieBreaker returns the tie breaker used to combine multi-field scores
func (c *Config) TieBreaker() float64 {
	return c.tieBreaker
}

// PhraseMatchBoost returns the phrase match boost coerced to an integer, and
// whether a boost was configured at all. An absent boost returns (0, false)
// so it can be told apart from an explicit boost of zero.
func (c *Config) PhraseMatchBoost() (int, bool) {
	if isNil(c.phraseMatchBoost) {
		return 0, false
	}
	return ToInt(c.phraseMatchBoost), true
}

// CutOffFrequency returns the cutoff frequency coerced to a float
func (c *Config) CutOffFrequency() float64 {
	return ToFloat(c.cutOffFrequency)
}

// FuzzinessConfiguration returns the fuzziness configuration, or nil
func (c *Config) FuzzinessConfiguration() FuzzinessConfiguration {
	return c.fuzziness
}

// PhoneticConfiguration returns the phonetic configuration, or nil
func (c *Config) PhoneticConfiguration() PhoneticConfiguration {
	return c.phonetic
}

// FuzzinessEnabled reports whether fuzzy matching is configured
func (c *Config) FuzzinessEnabled() bool {
	return c.fuzziness != nil
}

// PhoneticSearchEnabled reports whether phonetic matching is configured
func (c *Config) PhoneticSearchEnabled() bool {
	return c.phonetic != nil
}

// isNil catches typed nil pointers hidden inside an interface value
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
