package evaluate

import (
	"fmt"

	"github.com/kiosklabs/shelfscan/internal/domain/catalog"
	"github.com/kiosklabs/shelfscan/internal/domain/decision"
	"github.com/kiosklabs/shelfscan/internal/domain/suggestion"
)

// suggestionsFor builds the pick list for a decision. AutoAccept needs no
// alternatives; every other outcome gets a list sized by its limit.
func (s *Service) suggestionsFor(d *decision.Decision) []suggestion.Entry {
	switch d.Outcome() {
	case decision.OutcomeAutoAccept:
		return nil
	case decision.OutcomeNoMatch:
		return s.fallbackSuggestions(s.limits.Fallback, "")
	case decision.OutcomeConfirm:
		limit := s.limits.Confirm
		if d.Level() == decision.LevelLow {
			limit = s.limits.Uncertain
		}
		return s.smartSuggestions(d, limit)
	default: // choose_among
		return s.smartSuggestions(d, s.limits.Confirm)
	}
}

// smartSuggestions orders alternatives around the primary detection:
// the detection itself first (highlighted), then remaining catalog entries
// of the same category in catalog order, then same-brand entries if the
// list still has room. No classID appears twice.
func (s *Service) smartSuggestions(d *decision.Decision, limit int) []suggestion.Entry {
	primary, ok := d.Primary()
	if !ok || limit <= 0 {
		return s.fallbackSuggestions(limit, "")
	}

	out := make([]suggestion.Entry, 0, limit)
	seen := map[string]struct{}{primary.ClassID(): {}}

	out = append(out, suggestion.Entry{
		ClassID:     primary.ClassID(),
		Name:        primary.ProductName(),
		Barcode:     primary.Barcode(),
		Price:       primary.Price(),
		Category:    primary.Category(),
		Brand:       primary.Brand(),
		Highlighted: true,
		Reason:      fmt.Sprintf("%.0f%% match", primary.AdjustedConfidence()),
	})

	for _, e := range s.catalog.All() {
		if len(out) >= limit {
			return out
		}
		if _, dup := seen[e.ClassID()]; dup || e.Category() != primary.Category() {
			continue
		}
		seen[e.ClassID()] = struct{}{}
		out = append(out, entryToSuggestion(&e, fmt.Sprintf("similar to %s", primary.ProductName())))
	}

	if primary.Brand() != "" {
		for _, e := range s.catalog.All() {
			if len(out) >= limit {
				return out
			}
			if _, dup := seen[e.ClassID()]; dup || e.Brand() != primary.Brand() {
				continue
			}
			seen[e.ClassID()] = struct{}{}
			out = append(out, entryToSuggestion(&e, fmt.Sprintf("same brand: %s", primary.Brand())))
		}
	}

	return out
}

// fallbackSuggestions returns the first limit catalog entries in catalog
// order for manual entry. A non-empty priorityCategory front-loads that
// category's entries.
func (s *Service) fallbackSuggestions(limit int, priorityCategory string) []suggestion.Entry {
	if limit <= 0 {
		return nil
	}

	out := make([]suggestion.Entry, 0, limit)
	seen := make(map[string]struct{}, limit)

	if priorityCategory != "" {
		for _, e := range s.catalog.All() {
			if len(out) >= limit {
				return out
			}
			if e.Category() != priorityCategory {
				continue
			}
			seen[e.ClassID()] = struct{}{}
			sug := entryToSuggestion(&e, "category: "+priorityCategory)
			sug.Highlighted = true
			out = append(out, sug)
		}
	}

	for _, e := range s.catalog.All() {
		if len(out) >= limit {
			return out
		}
		if _, dup := seen[e.ClassID()]; dup {
			continue
		}
		out = append(out, entryToSuggestion(&e, "catalog"))
	}
	return out
}

func entryToSuggestion(e *catalog.Entry, reason string) suggestion.Entry {
	return suggestion.Entry{
		ClassID:  e.ClassID(),
		Name:     e.DisplayName(),
		Barcode:  e.Barcode(),
		Price:    e.Price(),
		Category: e.Category(),
		Brand:    e.Brand(),
		Reason:   reason,
	}
}
