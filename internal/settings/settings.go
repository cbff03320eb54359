package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lox/search-relevance/internal/relevance"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMinimumShouldMatch = "100%"
	DefaultTieBreaker         = 1.0
	DefaultCutOffFrequency    = 0.15
)

// FuzzinessSettings configures fuzzy matching for a container
type FuzzinessSettings struct {
	Value              string `yaml:"value" json:"value" validate:"required,oneof=AUTO 0 1 2"`
	PrefixLength       int    `yaml:"prefix_length" json:"prefix_length" validate:"gte=0"`
	MaxExpansions      int    `yaml:"max_expansions" json:"max_expansions" validate:"gte=0"`
	MinimumShouldMatch string `yaml:"minimum_should_match,omitempty" json:"minimum_should_match,omitempty" validate:"omitempty,minimum_should_match"`
}

// PhoneticSettings configures phonetic matching for a container
type PhoneticSettings struct {
	Fuzziness *FuzzinessSettings `yaml:"fuzziness,omitempty" json:"fuzziness,omitempty"`
}

// ContainerSettings is the relevance tuning of one search request container,
// as stored in a settings file or the database.
type ContainerSettings struct {
	Name               string             `yaml:"name" json:"name" validate:"required"`
	MinimumShouldMatch string             `yaml:"minimum_should_match" json:"minimum_should_match" validate:"required,minimum_should_match"`
	TieBreaker         float64            `yaml:"tie_breaker" json:"tie_breaker" validate:"gte=0,lte=1"`
	PhraseMatchBoost   *int               `yaml:"phrase_match_boost,omitempty" json:"phrase_match_boost,omitempty" validate:"omitempty,gte=0"`
	CutOffFrequency    float64            `yaml:"cut_off_frequency" json:"cut_off_frequency" validate:"gte=0"`
	Fuzziness          *FuzzinessSettings `yaml:"fuzziness,omitempty" json:"fuzziness,omitempty"`
	Phonetic           *PhoneticSettings  `yaml:"phonetic,omitempty" json:"phonetic,omitempty"`
}

// File is the top level of a relevance settings file
type File struct {
	Containers []ContainerSettings `yaml:"containers" json:"containers" validate:"dive"`
}

// minimumShouldMatchPattern accepts counts and percentages ("3", "-2", "75%")
// and conditional combinations ("3<90%", "2<-25% 9<-3").
var minimumShouldMatchPattern = regexp.MustCompile(`^(-?\d+%?|\d+<-?\d+%?(\s+\d+<-?\d+%?)*)$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("minimum_should_match", validateMinimumShouldMatch); err != nil {
		panic(fmt.Sprintf("failed to register minimum_should_match validation: %v", err))
	}
}

func validateMinimumShouldMatch(fl validator.FieldLevel) bool {
	return minimumShouldMatchPattern.MatchString(strings.TrimSpace(fl.Field().String()))
}

// ValidationError lists the invalid fields of a container
type ValidationError struct {
	Container string
	Fields    []string
}

func (e *ValidationError) Error() string {
	name := e.Container
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("invalid relevance settings for container %q: %s", name, strings.Join(e.Fields, "; "))
}

// Defaults returns the settings used for a container with nothing configured
func Defaults(name string) ContainerSettings {
	return ContainerSettings{
		Name:               name,
		MinimumShouldMatch: DefaultMinimumShouldMatch,
		TieBreaker:         DefaultTieBreaker,
		CutOffFrequency:    DefaultCutOffFrequency,
	}
}

// Validate checks the settings of a single container
func (s ContainerSettings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("failed to validate container %q: %w", s.Name, err)
	}

	verr := &ValidationError{Container: s.Name}
	for _, fe := range validationErrors {
		verr.Fields = append(verr.Fields, describeFieldError(fe))
	}
	return verr
}

func describeFieldError(fe validator.FieldError) string {
	// drop the leading struct name, e.g. "ContainerSettings.Fuzziness.Value"
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
	}
	return fmt.Sprintf("%s must satisfy %s (got %v)", field, fe.Tag(), fe.Value())
}

// Validate checks every container and rejects duplicate names
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Containers))
	for _, c := range f.Containers {
		if err := c.Validate(); err != nil {
			return err
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate container %q in settings file", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// Get returns the settings of the named container
func (f *File) Get(name string) (ContainerSettings, bool) {
	for _, c := range f.Containers {
		if c.Name == name {
			return c, true
		}
	}
	return ContainerSettings{}, false
}

// Load decodes and validates a YAML settings document. Unknown keys are rejected.
func Load(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads a YAML settings file from disk
func LoadFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings file: %w", err)
	}
	defer fh.Close()

	return Load(fh)
}

// Marshal encodes the settings as YAML
func (f *File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// RelevanceConfig builds the immutable relevance configuration. The settings
// are expected to be validated already; nothing is checked here.
func (s ContainerSettings) RelevanceConfig() *relevance.Config {
	var opts []relevance.Option
	if s.Fuzziness != nil {
		opts = append(opts, relevance.WithFuzziness(s.Fuzziness.config()))
	}
	if s.Phonetic != nil {
		var fuzziness relevance.FuzzinessConfiguration
		if s.Phonetic.Fuzziness != nil {
			fuzziness = s.Phonetic.Fuzziness.config()
		}
		opts = append(opts, relevance.WithPhonetic(relevance.NewPhoneticConfig(fuzziness)))
	}

	var boost any
	if s.PhraseMatchBoost != nil {
		boost = *s.PhraseMatchBoost
	}

	return relevance.New(s.MinimumShouldMatch, s.TieBreaker, boost, s.CutOffFrequency, opts...)
}

func (f *FuzzinessSettings) config() *relevance.FuzzinessConfig {
	return relevance.NewFuzzinessConfig(f.Value, f.PrefixLength, f.MaxExpansions, f.MinimumShouldMatch)
}
