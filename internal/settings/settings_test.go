package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSettings = `
containers:
  - name: quick_search_container
    minimum_should_match: "75%"
    tie_breaker: 0.3
    phrase_match_boost: 2
    cut_off_frequency: 0.01
    fuzziness:
      value: AUTO
      prefix_length: 1
      max_expansions: 10
    phonetic:
      fuzziness:
        value: "1"
        prefix_length: 2
        max_expansions: 5
  - name: catalog_view_container
    minimum_should_match: "2<75%"
    tie_breaker: 1
    cut_off_frequency: 0.15
`

func intPtr(i int) *int { return &i }

func TestLoad(t *testing.T) {
	f, err := Load(strings.NewReader(sampleSettings))
	require.NoError(t, err)
	require.Len(t, f.Containers, 2)

	quick, ok := f.Get("quick_search_container")
	require.True(t, ok)
	assert.Equal(t, "75%", quick.MinimumShouldMatch)
	assert.Equal(t, 0.3, quick.TieBreaker)
	require.NotNil(t, quick.PhraseMatchBoost)
	assert.Equal(t, 2, *quick.PhraseMatchBoost)
	require.NotNil(t, quick.Fuzziness)
	assert.Equal(t, "AUTO", quick.Fuzziness.Value)
	require.NotNil(t, quick.Phonetic)
	require.NotNil(t, quick.Phonetic.Fuzziness)
	assert.Equal(t, 5, quick.Phonetic.Fuzziness.MaxExpansions)

	catalog, ok := f.Get("catalog_view_container")
	require.True(t, ok)
	assert.Nil(t, catalog.PhraseMatchBoost)
	assert.Nil(t, catalog.Fuzziness)
	assert.Nil(t, catalog.Phonetic)

	_, ok = f.Get("missing")
	assert.False(t, ok)
}

func TestLoadEmpty(t *testing.T) {
	f, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Containers)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader(`
containers:
  - name: c
    minimum_should_match: "1"
    tie_breaker: 0.5
    boost: 3
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse settings")
}

func TestLoadRejectsDuplicates(t *testing.T) {
	_, err := Load(strings.NewReader(`
containers:
  - name: c
    minimum_should_match: "1"
  - name: c
    minimum_should_match: "2"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate container "c"`)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relevance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleSettings), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Containers, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *ContainerSettings)
		wantErr string
	}{
		{"defaults are valid", func(s *ContainerSettings) {}, ""},
		{"count", func(s *ContainerSettings) { s.MinimumShouldMatch = "3" }, ""},
		{"negative percentage", func(s *ContainerSettings) { s.MinimumShouldMatch = "-25%" }, ""},
		{"combination", func(s *ContainerSettings) { s.MinimumShouldMatch = "2<-25% 9<-3" }, ""},
		{"zero boost", func(s *ContainerSettings) { s.PhraseMatchBoost = intPtr(0) }, ""},
		{"missing name", func(s *ContainerSettings) { s.Name = "" }, "Name"},
		{"bad minimum should match", func(s *ContainerSettings) { s.MinimumShouldMatch = "most" }, "MinimumShouldMatch"},
		{"tie breaker above one", func(s *ContainerSettings) { s.TieBreaker = 1.5 }, "TieBreaker"},
		{"negative tie breaker", func(s *ContainerSettings) { s.TieBreaker = -0.1 }, "TieBreaker"},
		{"negative cutoff", func(s *ContainerSettings) { s.CutOffFrequency = -1 }, "CutOffFrequency"},
		{"negative boost", func(s *ContainerSettings) { s.PhraseMatchBoost = intPtr(-1) }, "PhraseMatchBoost"},
		{"bad fuzziness value", func(s *ContainerSettings) {
			s.Fuzziness = &FuzzinessSettings{Value: "3"}
		}, "Fuzziness.Value"},
		{"negative prefix length", func(s *ContainerSettings) {
			s.Fuzziness = &FuzzinessSettings{Value: "AUTO", PrefixLength: -1}
		}, "Fuzziness.PrefixLength"},
		{"bad phonetic fuzziness", func(s *ContainerSettings) {
			s.Phonetic = &PhoneticSettings{Fuzziness: &FuzzinessSettings{Value: "AUTO", MinimumShouldMatch: "all"}}
		}, "Phonetic.Fuzziness.MinimumShouldMatch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Defaults("quick_search_container")
			tt.mutate(&s)

			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, s.Name, verr.Container)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRelevanceConfig(t *testing.T) {
	f, err := Load(strings.NewReader(sampleSettings))
	require.NoError(t, err)

	quick, _ := f.Get("quick_search_container")
	cfg := quick.RelevanceConfig()

	assert.Equal(t, "75%", cfg.MinimumShouldMatch())
	assert.Equal(t, 0.3, cfg.TieBreaker())
	assert.Equal(t, 0.01, cfg.CutOffFrequency())
	boost, ok := cfg.PhraseMatchBoost()
	assert.True(t, ok)
	assert.Equal(t, 2, boost)

	require.True(t, cfg.FuzzinessEnabled())
	assert.Equal(t, "AUTO", cfg.FuzzinessConfiguration().Value())
	assert.Equal(t, 1, cfg.FuzzinessConfiguration().PrefixLength())
	assert.Equal(t, 10, cfg.FuzzinessConfiguration().MaxExpansions())

	require.True(t, cfg.PhoneticSearchEnabled())
	require.True(t, cfg.PhoneticConfiguration().FuzzinessEnabled())
	assert.Equal(t, "1", cfg.PhoneticConfiguration().FuzzinessConfiguration().Value())

	catalog, _ := f.Get("catalog_view_container")
	cfg = catalog.RelevanceConfig()
	_, ok = cfg.PhraseMatchBoost()
	assert.False(t, ok)
	assert.False(t, cfg.FuzzinessEnabled())
	assert.False(t, cfg.PhoneticSearchEnabled())
}

func TestMarshalRoundTripsThroughLoad(t *testing.T) {
	f, err := Load(strings.NewReader(sampleSettings))
	require.NoError(t, err)

	data, err := f.Marshal()
	require.NoError(t, err)

	again, err := Load(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, f, again)
}
