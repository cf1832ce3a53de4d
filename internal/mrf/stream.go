package mrf

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gyeh/ticrates/internal/model"
)

// StreamExtract parses an in-network document token by token and emits the
// same record stream Extract produces on the whole-document path, without
// materializing the in_network array. Out-of-scope billing codes are decoded
// and discarded one item at a time, so peak memory is bounded by the largest
// single item.
//
// Top-level fields may appear in any order. Matched items seen before the
// document header is complete (reporting_entity_name, last_updated_on,
// provider_references) are buffered raw and replayed at the end, so the
// record stream is identical to the whole-document path for every legal
// ordering. The emit callback may return ErrStop to end extraction early;
// the decoder is abandoned cleanly and no further reads occur.
func (e *Extractor) StreamExtract(r io.Reader, emit func(model.RateRecord) error) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	t, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read opening token: %w", err)
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected {, got %v", t)
	}

	st := &streamState{
		extractor: e,
		resolver:  NewResolver(),
		payer:     e.PayerName,
	}

	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read field name: %w", err)
		}
		field, ok := t.(string)
		if !ok {
			return fmt.Errorf("expected field name, got %T", t)
		}

		switch field {
		case "reporting_entity_name":
			var name string
			if err := dec.Decode(&name); err != nil {
				return fmt.Errorf("decode reporting_entity_name: %w", err)
			}
			if name != "" {
				st.payer = name
			}
			st.payerSeen = true
		case "last_updated_on":
			var s string
			if err := dec.Decode(&s); err != nil {
				return fmt.Errorf("decode last_updated_on: %w", err)
			}
			st.lastUpdated = ParseLastUpdated(s)
			st.dateSeen = true
		case "provider_references":
			if err := streamArray(dec, func() error {
				var ref RawProviderReference
				if err := dec.Decode(&ref); err != nil {
					return fmt.Errorf("decode provider_reference: %w", err)
				}
				st.resolver.Add(ref)
				return nil
			}); err != nil {
				return err
			}
			st.refsSeen = true
		case "in_network":
			err := streamArray(dec, func() error {
				var item RawInNetworkItem
				if err := dec.Decode(&item); err != nil {
					return fmt.Errorf("decode in_network item: %w", err)
				}
				return st.handleItem(&item, emit)
			})
			if errors.Is(err, ErrStop) {
				return nil
			}
			if err != nil {
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("skip field %s: %w", field, err)
			}
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read closing token: %w", err)
	}

	// Replay items held back because a header field arrived late.
	for i := range st.pending {
		err := e.extractItem(&st.pending[i], st.resolver, st.payer, st.lastUpdated, emit)
		if errors.Is(err, ErrStop) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type streamState struct {
	extractor   *Extractor
	resolver    *Resolver
	payer       string
	payerSeen   bool
	lastUpdated *time.Time
	dateSeen    bool
	refsSeen    bool
	pending     []RawInNetworkItem
}

// headerComplete reports whether every field an emitted record depends on
// has been read. Until then items are deferred so a late entity name or
// date never leaves early records with stale values.
func (st *streamState) headerComplete() bool {
	return st.payerSeen && st.dateSeen && st.refsSeen
}

func (st *streamState) handleItem(item *RawInNetworkItem, emit func(model.RateRecord) error) error {
	// Same cheap reject as the whole-document path; buffered items are
	// filtered before buffering so the deferral holds matches only.
	if !st.extractor.Filters.WantsCode(item.BillingCode) {
		return nil
	}
	if !st.headerComplete() {
		st.pending = append(st.pending, *item)
		return nil
	}
	return st.extractor.extractItem(item, st.resolver, st.payer, st.lastUpdated, emit)
}

// streamArray reads a JSON array element by element, calling fn for each.
func streamArray(dec *json.Decoder, fn func() error) error {
	t, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read array start: %w", err)
	}
	if d, ok := t.(json.Delim); !ok || d != '[' {
		return fmt.Errorf("expected [, got %v", t)
	}
	for dec.More() {
		if err := fn(); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
