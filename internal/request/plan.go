package request

import (
	"fmt"
	"strings"

	"github.com/lox/search-relevance/internal/relevance"
	"golang.org/x/exp/slices"
)

// ClauseKind names a query clause a request assembler emits
type ClauseKind string

const (
	ClauseMultiMatch    ClauseKind = "multi_match"
	ClausePhraseMatch   ClauseKind = "phrase_match"
	ClauseFuzzyMatch    ClauseKind = "fuzzy_match"
	ClausePhoneticMatch ClauseKind = "phonetic_match"
)

var defaultFields = []string{"search"}

// Clause is one clause of a planned text query and its relevance parameters
type Clause struct {
	Kind   ClauseKind     `json:"kind"`
	Fields []string       `json:"fields"`
	Params map[string]any `json:"params"`
}

// Plan lists the clauses a text query is built from, in emission order
type Plan struct {
	Query   string   `json:"query"`
	Clauses []Clause `json:"clauses"`
}

type planOptions struct {
	fields         []string
	phoneticFields []string
	skipPhrase     bool
}

// PlanOption is a function that modifies planOptions
type PlanOption func(*planOptions)

// WithFields sets the fields the text clauses search
func WithFields(fields ...string) PlanOption {
	fields = slices.Clone(fields)
	return func(opts *planOptions) {
		opts.fields = fields
	}
}

// WithPhoneticFields sets the fields searched by the phonetic clause. Defaults
// to the text fields.
func WithPhoneticFields(fields ...string) PlanOption {
	fields = slices.Clone(fields)
	return func(opts *planOptions) {
		opts.phoneticFields = fields
	}
}

// WithoutPhrase leaves out the phrase clause even when a boost is configured
func WithoutPhrase() PlanOption {
	return func(opts *planOptions) {
		opts.skipPhrase = true
	}
}

// Build plans the clauses of a text query tuned by cfg. A blank query yields
// an empty plan. Every clause owns its Fields slice.
func Build(cfg *relevance.Config, query string, opts ...PlanOption) Plan {
	options := planOptions{fields: defaultFields}
	for _, opt := range opts {
		opt(&options)
	}
	if len(options.fields) == 0 {
		options.fields = defaultFields
	}
	phoneticFields := options.phoneticFields
	if len(phoneticFields) == 0 {
		phoneticFields = options.fields
	}

	query = strings.TrimSpace(query)
	plan := Plan{Query: query}
	if query == "" {
		return plan
	}

	plan.Clauses = append(plan.Clauses, Clause{
		Kind:   ClauseMultiMatch,
		Fields: slices.Clone(options.fields),
		Params: map[string]any{
			"minimum_should_match": cfg.MinimumShouldMatch(),
			"tie_breaker":          cfg.TieBreaker(),
			"cutoff_frequency":     cfg.CutOffFrequency(),
		},
	})

	if boost, ok := cfg.PhraseMatchBoost(); ok && !options.skipPhrase {
		plan.Clauses = append(plan.Clauses, Clause{
			Kind:   ClausePhraseMatch,
			Fields: slices.Clone(options.fields),
			Params: map[string]any{"boost": boost},
		})
	}

	if cfg.FuzzinessEnabled() {
		plan.Clauses = append(plan.Clauses, Clause{
			Kind:   ClauseFuzzyMatch,
			Fields: slices.Clone(options.fields),
			Params: fuzzinessParams(cfg.FuzzinessConfiguration()),
		})
	}

	if cfg.PhoneticSearchEnabled() {
		params := map[string]any{
			"minimum_should_match": cfg.MinimumShouldMatch(),
			"tie_breaker":          cfg.TieBreaker(),
		}
		phonetic := cfg.PhoneticConfiguration()
		if phonetic.FuzzinessEnabled() {
			for k, v := range fuzzinessParams(phonetic.FuzzinessConfiguration()) {
				params[k] = v
			}
		}
		plan.Clauses = append(plan.Clauses, Clause{
			Kind:   ClausePhoneticMatch,
			Fields: slices.Clone(phoneticFields),
			Params: params,
		})
	}

	return plan
}

func fuzzinessParams(f relevance.FuzzinessConfiguration) map[string]any {
	params := map[string]any{
		"fuzziness":      f.Value(),
		"prefix_length":  f.PrefixLength(),
		"max_expansions": f.MaxExpansions(),
	}
	if f.MinimumShouldMatch() != "" {
		params["minimum_should_match"] = f.MinimumShouldMatch()
	}
	return params
}

// Has reports whether the plan contains a clause of the given kind
func (p Plan) Has(kind ClauseKind) bool {
	_, ok := p.Clause(kind)
	return ok
}

// Clause returns the first clause of the given kind
func (p Plan) Clause(kind ClauseKind) (Clause, bool) {
	for _, c := range p.Clauses {
		if c.Kind == kind {
			return c, true
		}
	}
	return Clause{}, false
}

// String renders the plan one clause per line, parameters sorted by name
func (p Plan) String() string {
	if len(p.Clauses) == 0 {
		return fmt.Sprintf("query %q: no clauses\n", p.Query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "query %q:\n", p.Query)
	for _, c := range p.Clauses {
		fmt.Fprintf(&b, "  %s [%s]", c.Kind, strings.Join(c.Fields, ","))
		for _, k := range sortedKeys(c.Params) {
			fmt.Fprintf(&b, " %s=%v", k, c.Params[k])
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
