package domain

// ScopeVerdict classifies a query against the covered knowledge domain.
type ScopeVerdict string

// Scope verdicts.
const (
	// ScopeInScope means the query is answerable from the indexed domain.
	ScopeInScope ScopeVerdict = "in_scope"

	// ScopeOutOfScope means the query falls outside the domain and is
	// answered with a redirect, never with retrieval.
	ScopeOutOfScope ScopeVerdict = "out_of_scope"

	// ScopeAmbiguous means the query looked in-scope but retrieval found
	// nothing; it triggers the "no matching profile" fallback. Assigned
	// post-hoc by the answering pipeline, never by the classifier alone.
	ScopeAmbiguous ScopeVerdict = "ambiguous"
)

// IsValid returns true if the verdict is recognised.
func (v ScopeVerdict) IsValid() bool {
	switch v {
	case ScopeInScope, ScopeOutOfScope, ScopeAmbiguous:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (v ScopeVerdict) String() string {
	return string(v)
}

// ScopeDecision is the classifier's judgement for one query.
// Ephemeral: it lives only inside the turn record.
type ScopeDecision struct {
	// Query is the text the decision was made for, after any follow-up
	// resolution was applied.
	Query string

	// Verdict is the classification outcome.
	Verdict ScopeVerdict

	// MatchedTerms are the keywords or entity tokens that put the query
	// in scope. Empty for out-of-scope queries.
	MatchedTerms []string

	// Confidence is the matched share of content tokens, in [0,1].
	Confidence float64
}

// InScope is shorthand for verdict equality.
func (d ScopeDecision) InScope() bool {
	return d.Verdict == ScopeInScope
}
