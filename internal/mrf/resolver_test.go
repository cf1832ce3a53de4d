package mrf

import (
	"encoding/json"
	"testing"
)

func TestParseGroupRef_Direct(t *testing.T) {
	g := ParseGroupRef(json.Number("42"))
	if !g.valid || g.encoded {
		t.Fatalf("expected valid direct ref, got %+v", g)
	}
	if g.GroupID() != 42 {
		t.Errorf("GroupID = %d, want 42", g.GroupID())
	}
}

func TestParseGroupRef_Encoded(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"720.0000237894", 237894},
		{"720.0000000001", 1},
		{"1.0000000000", 0},
		{"0.9999999999", 9999999999},
	}
	for _, c := range cases {
		g := ParseGroupRef(json.Number(c.in))
		if !g.valid {
			t.Errorf("ParseGroupRef(%s): invalid", c.in)
			continue
		}
		if !g.Encoded() {
			t.Errorf("ParseGroupRef(%s): not classified as encoded", c.in)
		}
		if g.GroupID() != c.want {
			t.Errorf("ParseGroupRef(%s) = %d, want %d", c.in, g.GroupID(), c.want)
		}
	}
}

func TestParseGroupRef_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "12x"} {
		if g := ParseGroupRef(json.Number(in)); g.valid {
			t.Errorf("ParseGroupRef(%q): expected invalid, got id %d", in, g.GroupID())
		}
	}
}

func tin(v string) *TIN { return &TIN{Type: "ein", Value: v} }

func TestResolver_AddAndResolve(t *testing.T) {
	r := NewResolver()
	r.Add(RawProviderReference{
		ProviderGroupID: json.Number("7"),
		ProviderGroups: []RawProviderGroup{
			{NPI: []NPI{"1111111111", "2222222222"}, TIN: tin("12-3456789")},
			{NPI: []NPI{"3333333333"}},
		},
	})

	pairs, ok := r.Resolve(json.Number("7"))
	if !ok {
		t.Fatal("group 7 not found")
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	if pairs[0].TIN == nil || *pairs[0].TIN != "12-3456789" {
		t.Errorf("pair 0 TIN = %v, want 12-3456789", pairs[0].TIN)
	}
	if pairs[2].TIN != nil {
		t.Errorf("pair 2 TIN = %v, want nil", *pairs[2].TIN)
	}
}

func TestResolver_EncodedDialect(t *testing.T) {
	r := NewResolver()
	r.Add(RawProviderReference{
		ProviderGroupID: json.Number("720.0000237894"),
		ProviderGroups:  []RawProviderGroup{{NPI: []NPI{"1111111111"}}},
	})

	// Citations in negotiated_rates use the same encoded literal.
	pairs, ok := r.Resolve(json.Number("720.0000237894"))
	if !ok || len(pairs) != 1 {
		t.Fatalf("encoded resolve failed: ok=%v pairs=%v", ok, pairs)
	}

	// Citation by decoded id also works: both sides decode to 237894.
	if _, ok := r.Resolve(json.Number("237894")); !ok {
		t.Error("decoded-id resolve failed")
	}

	id, ok := r.DecodedID("720.0000237894")
	if !ok || id != 237894 {
		t.Errorf("DecodedID = %d, %v; want 237894, true", id, ok)
	}
}

func TestResolver_EmptyGroupIsPresent(t *testing.T) {
	r := NewResolver()
	r.Add(RawProviderReference{ProviderGroupID: json.Number("9")})

	pairs, ok := r.Resolve(json.Number("9"))
	if !ok {
		t.Fatal("empty group should still be a present key")
	}
	if len(pairs) != 0 {
		t.Errorf("expected empty pair list, got %v", pairs)
	}
}

func TestResolver_MalformedSkipped(t *testing.T) {
	r := NewResolver()
	r.Add(RawProviderReference{ProviderGroupID: json.Number("not-a-number")})
	r.Add(RawProviderReference{ProviderGroupID: json.Number("")})
	if r.Groups() != 0 {
		t.Errorf("expected 0 groups, got %d", r.Groups())
	}
	if _, ok := r.Resolve(json.Number("bogus")); ok {
		t.Error("resolving a malformed citation should fail")
	}
}
