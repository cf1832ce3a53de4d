package mrf

import (
	"encoding/json"
	"math"
	"strings"
)

// encodedScale recovers a group id from the fractional digits of an encoded
// reference: the fraction holds a 10-digit, zero-padded id.
const encodedScale = 1e10

// ProviderPair is one attributable (NPI, TIN) combination.
type ProviderPair struct {
	NPI string
	TIN *string
}

// GroupRef is a provider-group reference in either dialect: a plain integer
// id, or an encoded float whose fractional digits carry the id.
type GroupRef struct {
	id      int64
	raw     string
	encoded bool
	valid   bool
}

// ParseGroupRef classifies a reference value. Integer literals are direct
// ids; literals with a fractional part are the encoded dialect. Non-numeric
// input yields an invalid ref that resolves to nothing.
func ParseGroupRef(n json.Number) GroupRef {
	s := n.String()
	if s == "" {
		return GroupRef{}
	}
	if !strings.ContainsAny(s, ".eE") {
		id, err := n.Int64()
		if err != nil {
			return GroupRef{}
		}
		return GroupRef{id: id, raw: s, valid: true}
	}
	v, err := n.Float64()
	if err != nil {
		return GroupRef{}
	}
	// Rounding (not truncation) absorbs the binary representation error of
	// the fractional digits.
	id := int64(math.Round((v - math.Floor(v)) * encodedScale))
	return GroupRef{id: id, raw: s, encoded: true, valid: true}
}

// GroupID returns the decoded group id.
func (g GroupRef) GroupID() int64 { return g.id }

// Encoded reports whether the reference used the encoded-float dialect.
func (g GroupRef) Encoded() bool { return g.encoded }

// Resolver maps provider-group references to concrete provider pairs for
// one document. Built before (or interleaved with) rate extraction and
// discarded with the document.
type Resolver struct {
	byID map[int64][]ProviderPair
	// rawEncoded maps the original encoded literal to its decoded id, kept
	// for diagnostics: it distinguishes "reference never published" from
	// "published but empty".
	rawEncoded map[string]int64
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byID:       make(map[int64][]ProviderPair),
		rawEncoded: make(map[string]int64),
	}
}

// Add registers one provider_references entry. Malformed entries (missing
// or non-numeric id) are skipped; resolution is best-effort, never fatal.
// A group with zero providers is stored as a present, empty key.
func (r *Resolver) Add(ref RawProviderReference) {
	g := ParseGroupRef(ref.ProviderGroupID)
	if !g.valid {
		return
	}
	pairs := r.byID[g.id]
	for _, pg := range ref.ProviderGroups {
		var tin *string
		if pg.TIN != nil && pg.TIN.Value != "" {
			v := pg.TIN.Value
			tin = &v
		}
		for _, npi := range pg.NPI {
			if npi == "" {
				continue
			}
			pairs = append(pairs, ProviderPair{NPI: string(npi), TIN: tin})
		}
	}
	if pairs == nil {
		pairs = []ProviderPair{}
	}
	r.byID[g.id] = pairs
	if g.encoded {
		r.rawEncoded[g.raw] = g.id
	}
}

// Build constructs a resolver from a document's provider_references section.
func Build(refs []RawProviderReference) *Resolver {
	r := NewResolver()
	for _, ref := range refs {
		r.Add(ref)
	}
	return r
}

// Resolve returns the provider pairs for a reference value cited by a
// negotiated-rate entry. Direct id lookup is tried first; otherwise the
// value is decoded and looked up by the recovered id.
func (r *Resolver) Resolve(n json.Number) ([]ProviderPair, bool) {
	g := ParseGroupRef(n)
	if !g.valid {
		return nil, false
	}
	pairs, ok := r.byID[g.id]
	return pairs, ok
}

// Groups returns the number of known group ids.
func (r *Resolver) Groups() int { return len(r.byID) }

// DecodedID returns the group id recorded for a raw encoded literal.
func (r *Resolver) DecodedID(raw string) (int64, bool) {
	id, ok := r.rawEncoded[raw]
	return id, ok
}
