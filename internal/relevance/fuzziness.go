package relevance

// Fuzziness values understood by the search backend
const (
	FuzzinessAuto = "AUTO"
	FuzzinessZero = "0"
	FuzzinessOne  = "1"
	FuzzinessTwo  = "2"
)

// FuzzinessConfig is the default FuzzinessConfiguration
type FuzzinessConfig struct {
	value              string
	prefixLength       int
	maxExpansions      int
	minimumShouldMatch string
}

var _ FuzzinessConfiguration = (*FuzzinessConfig)(nil)

// NewFuzzinessConfig creates a fuzziness configuration
func NewFuzzinessConfig(value string, prefixLength, maxExpansions int, minimumShouldMatch string) *FuzzinessConfig {
	return &FuzzinessConfig{
		value:              value,
		prefixLength:       prefixLength,
		maxExpansions:      maxExpansions,
		minimumShouldMatch: minimumShouldMatch,
	}
}

func (f *FuzzinessConfig) Value() string              { return f.value }
func (f *FuzzinessConfig) PrefixLength() int          { return f.prefixLength }
func (f *FuzzinessConfig) MaxExpansions() int         { return f.maxExpansions }
func (f *FuzzinessConfig) MinimumShouldMatch() string { return f.minimumShouldMatch }
