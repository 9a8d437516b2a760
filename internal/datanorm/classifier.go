package datanorm

import (
	"fmt"
	"strings"
)

// Registry is an ordered signature catalog. Classification walks it top to
// bottom; the weighted score decides, and order only breaks ties.
type Registry struct {
	sigs []Signature
	byID map[string]int
}

// NewRegistry validates and freezes a catalog.
func NewRegistry(sigs ...Signature) (*Registry, error) {
	r := &Registry{
		sigs: make([]Signature, 0, len(sigs)),
		byID: make(map[string]int, len(sigs)),
	}
	for _, s := range sigs {
		if s.ID == "" {
			return nil, fmt.Errorf("signature %q: empty id", s.Label)
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, fmt.Errorf("signature %s: duplicate id", s.ID)
		}
		if s.Tier != TierDaily && s.Tier != TierDetail {
			return nil, fmt.Errorf("signature %s: invalid tier %d", s.ID, s.Tier)
		}
		if len(s.Required) == 0 {
			return nil, fmt.Errorf("signature %s: no required fragments", s.ID)
		}
		s.Required = append([]string(nil), s.Required...)
		s.Optional = append([]string(nil), s.Optional...)
		r.byID[s.ID] = len(r.sigs)
		r.sigs = append(r.sigs, s)
	}
	return r, nil
}

// MustRegistry is NewRegistry for static catalogs.
func MustRegistry(sigs ...Signature) *Registry {
	r, err := NewRegistry(sigs...)
	if err != nil {
		panic(err)
	}
	return r
}

var defaultRegistry = MustRegistry(defaultSignatures...)

// DefaultRegistry returns the built-in catalog.
func DefaultRegistry() *Registry { return defaultRegistry }

// Signatures returns a copy of the catalog in priority order.
func (r *Registry) Signatures() []Signature {
	out := make([]Signature, len(r.sigs))
	copy(out, r.sigs)
	return out
}

// Lookup finds a signature by ID.
func (r *Registry) Lookup(id string) (Signature, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Signature{}, false
	}
	return r.sigs[idx], true
}

// Len returns the number of signatures.
func (r *Registry) Len() int { return len(r.sigs) }

// Score is one signature's fit against a header row.
type Score struct {
	ID              string   `json:"id"`
	Label           string   `json:"label"`
	Candidate       bool     `json:"candidate"`
	RequiredMatched int      `json:"required_matched"`
	RequiredTotal   int      `json:"required_total"`
	OptionalMatched int      `json:"optional_matched"`
	Score           int      `json:"score"`
	MissingRequired []string `json:"missing_required,omitempty"`
}

// Classify returns the best-scoring signature whose required fragments are
// all present, or nil. The returned signature must not be modified.
func (r *Registry) Classify(headers []string) *Signature {
	trimmed := trimHeaders(headers)
	best, bestScore := -1, -1
	for i := range r.sigs {
		sc := scoreSignature(trimmed, &r.sigs[i])
		if !sc.Candidate {
			continue
		}
		if sc.Score > bestScore {
			best, bestScore = i, sc.Score
		}
	}
	if best < 0 {
		return nil
	}
	s := r.sigs[best]
	return &s
}

// Explain scores every signature against the headers, in registry order.
func (r *Registry) Explain(headers []string) []Score {
	trimmed := trimHeaders(headers)
	out := make([]Score, 0, len(r.sigs))
	for i := range r.sigs {
		out = append(out, scoreSignature(trimmed, &r.sigs[i]))
	}
	return out
}

func scoreSignature(headers []string, s *Signature) Score {
	sc := Score{ID: s.ID, Label: s.Label, RequiredTotal: len(s.Required)}
	for _, f := range s.Required {
		if fragmentMatches(headers, f) {
			sc.RequiredMatched++
		} else {
			sc.MissingRequired = append(sc.MissingRequired, f)
		}
	}
	for _, f := range s.Optional {
		if fragmentMatches(headers, f) {
			sc.OptionalMatched++
		}
	}
	sc.Candidate = sc.RequiredMatched == sc.RequiredTotal
	sc.Score = 10*sc.RequiredMatched + sc.OptionalMatched
	return sc
}

// fragmentMatches is deliberately loose: a header matches when it contains
// the fragment or the fragment contains it. Blank headers never match.
func fragmentMatches(headers []string, fragment string) bool {
	for _, h := range headers {
		if h == "" {
			continue
		}
		if strings.Contains(h, fragment) || strings.Contains(fragment, h) {
			return true
		}
	}
	return false
}

func trimHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}
	return out
}
