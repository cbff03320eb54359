package relevance

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigAccessors(t *testing.T) {
	cfg := New("75%", 0.3, 2, 0.01)

	assert.Equal(t, "75%", cfg.MinimumShouldMatch())
	assert.Equal(t, 0.3, cfg.TieBreaker())
	assert.Equal(t, 0.01, cfg.CutOffFrequency())

	boost, ok := cfg.PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 2, boost)

	assert.False(t, cfg.FuzzinessEnabled())
	assert.False(t, cfg.PhoneticSearchEnabled())
	assert.Nil(t, cfg.FuzzinessConfiguration())
	assert.Nil(t, cfg.PhoneticConfiguration())
}

func TestConfigStoresValuesUnvalidated(t *testing.T) {
	cfg := New("not an expression", 7.5, -3, -1)

	assert.Equal(t, "not an expression", cfg.MinimumShouldMatch())
	assert.Equal(t, 7.5, cfg.TieBreaker())
	assert.Equal(t, -1.0, cfg.CutOffFrequency())

	boost, ok := cfg.PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, -3, boost)
}

func TestConfigWithFuzziness(t *testing.T) {
	fuzziness := NewFuzzinessConfig(FuzzinessAuto, 1, 10, "100%")
	cfg := New("75%", 0.3, 2, 0.01, WithFuzziness(fuzziness))

	require.True(t, cfg.FuzzinessEnabled())
	assert.False(t, cfg.PhoneticSearchEnabled())
	// same instance, not a copy
	assert.Same(t, fuzziness, cfg.FuzzinessConfiguration())
}

func TestConfigWithPhonetic(t *testing.T) {
	phonetic := NewPhoneticConfig(nil)
	cfg := New("75%", 0.3, nil, 0.01, WithPhonetic(phonetic))

	require.True(t, cfg.PhoneticSearchEnabled())
	assert.False(t, cfg.FuzzinessEnabled())
	assert.Same(t, phonetic, cfg.PhoneticConfiguration())
	assert.False(t, phonetic.FuzzinessEnabled())
}

func TestConfigExplicitlyAbsentOptions(t *testing.T) {
	var fuzziness *FuzzinessConfig
	var phonetic *PhoneticConfig

	cfg := New("1", 0, nil, 0, WithFuzziness(nil), WithPhonetic(nil))
	assert.False(t, cfg.FuzzinessEnabled())
	assert.False(t, cfg.PhoneticSearchEnabled())

	cfg = New("1", 0, nil, 0, WithFuzziness(fuzziness), WithPhonetic(phonetic))
	assert.False(t, cfg.FuzzinessEnabled())
	assert.False(t, cfg.PhoneticSearchEnabled())
	assert.Nil(t, cfg.FuzzinessConfiguration())
	assert.Nil(t, cfg.PhoneticConfiguration())
}

func TestPhraseMatchBoostAbsent(t *testing.T) {
	var boost *int
	for _, cfg := range []*Config{
		New("100%", 1, nil, 0.15),
		New("100%", 1, boost, 0.15),
	} {
		value, ok := cfg.PhraseMatchBoost()
		assert.False(t, ok)
		assert.Equal(t, 0, value)
	}
}

func TestPhraseMatchBoostZeroIsPresent(t *testing.T) {
	value, ok := New("100%", 1, 0, 0.15).PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 0, value)
}

func TestLooseNumericInputs(t *testing.T) {
	cfg := New("75%", 0.3, "7", "0.01")

	boost, ok := cfg.PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 7, boost)
	assert.Equal(t, 0.01, cfg.CutOffFrequency())

	five := 5
	boost, ok = New("75%", 0.3, &five, 0.01).PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 5, boost)
}

func TestConfigCopiesPointerInputs(t *testing.T) {
	boost := 5
	cutoff := "0.01"
	d := decimal.RequireFromString("0.2")
	cfg := New("75%", 0.3, &boost, &cutoff)
	fromDecimal := New("75%", 0.3, nil, &d)

	boost = 99
	cutoff = "0.9"
	d = decimal.RequireFromString("0.7")

	got, ok := cfg.PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 5, got)
	assert.Equal(t, 0.01, cfg.CutOffFrequency())
	assert.Equal(t, 0.2, fromDecimal.CutOffFrequency())

	var nilBoost *int
	_, ok = New("75%", 0.3, nilBoost, 0.01).PhraseMatchBoost()
	assert.False(t, ok)
}

func TestPhoneticWithFuzziness(t *testing.T) {
	fuzziness := NewFuzzinessConfig(FuzzinessOne, 2, 50, "2")
	phonetic := NewPhoneticConfig(fuzziness)

	assert.True(t, phonetic.FuzzinessEnabled())
	got := phonetic.FuzzinessConfiguration()
	require.NotNil(t, got)
	assert.Equal(t, "1", got.Value())
	assert.Equal(t, 2, got.PrefixLength())
	assert.Equal(t, 50, got.MaxExpansions())
	assert.Equal(t, "2", got.MinimumShouldMatch())
}

func TestConfigIsStableAcrossReads(t *testing.T) {
	fuzziness := NewFuzzinessConfig(FuzzinessAuto, 1, 10, "100%")
	cfg := New("2<75%", 0.5, "3", "0.2", WithFuzziness(fuzziness))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				boost, ok := cfg.PhraseMatchBoost()
				assert.True(t, ok)
				assert.Equal(t, 3, boost)
				assert.Equal(t, "2<75%", cfg.MinimumShouldMatch())
				assert.Equal(t, 0.5, cfg.TieBreaker())
				assert.Equal(t, 0.2, cfg.CutOffFrequency())
				assert.True(t, cfg.FuzzinessEnabled())
				assert.Same(t, fuzziness, cfg.FuzzinessConfiguration())
			}
		}()
	}
	wg.Wait()
}
