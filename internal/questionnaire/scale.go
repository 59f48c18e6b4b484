// Package questionnaire holds the static SCI-90 question set and the
// factor-to-item index map. The tables are compiled in, validated once at
// startup and never mutated afterwards.
package questionnaire

import (
	"errors"
	"fmt"
	"sort"

	"github.com/TJerry3s/SCI-90test/internal/domain"
)

// Version identifies the question set. Stored results carry no item text, so
// the engine tables and this version change together.
const Version = "sci90-2024.1"

// ErrInvalidScale is returned by Validate when the static tables are defective.
var ErrInvalidScale = errors.New("invalid scale definition")

// Scale is an immutable question set with its factor index map.
type Scale struct {
	items        []domain.Item
	factors      []domain.Factor
	factorByName map[string]int
}

var defaultScale = buildDefault()

// Default returns the compiled SCI-90 scale.
func Default() *Scale {
	return defaultScale
}

func buildDefault() *Scale {
	items := make([]domain.Item, len(itemTable))
	for i, def := range itemTable {
		items[i] = domain.Item{ID: i + 1, Text: def.text, Factor: def.factor}
	}

	factors := make([]domain.Factor, len(factorTable))
	for i, def := range factorTable {
		factors[i] = domain.Factor{Name: def.name, DisplayName: def.displayName, ItemIDs: def.itemIDs}
	}

	return NewScale(items, factors)
}

// NewScale builds a scale from the given tables. The slices are copied;
// the factor order given here becomes the canonical iteration order.
func NewScale(items []domain.Item, factors []domain.Factor) *Scale {
	s := &Scale{
		items:        make([]domain.Item, len(items)),
		factors:      make([]domain.Factor, len(factors)),
		factorByName: make(map[string]int, len(factors)),
	}
	copy(s.items, items)
	for i, f := range factors {
		s.factors[i] = copyFactor(f)
		s.factorByName[f.Name] = i
	}
	return s
}

func copyFactor(f domain.Factor) domain.Factor {
	ids := make([]int, len(f.ItemIDs))
	copy(ids, f.ItemIDs)
	f.ItemIDs = ids
	return f
}

// ItemCount returns the number of items in the scale.
func (s *Scale) ItemCount() int {
	return len(s.items)
}

// Items returns a copy of all items ordered by id.
func (s *Scale) Items() []domain.Item {
	out := make([]domain.Item, len(s.items))
	copy(out, s.items)
	return out
}

// Item looks up one item by its 1-based id.
func (s *Scale) Item(id int) (domain.Item, bool) {
	if id < 1 || id > len(s.items) {
		return domain.Item{}, false
	}
	return s.items[id-1], true
}

// ItemsPage returns up to limit items starting at offset, plus the total
// item count. A non-positive limit returns everything after offset.
func (s *Scale) ItemsPage(offset, limit int) ([]domain.Item, int) {
	total := len(s.items)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.Item{}, total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	out := make([]domain.Item, end-offset)
	copy(out, s.items[offset:end])
	return out, total
}

// Factors returns the factors in canonical order.
func (s *Scale) Factors() []domain.Factor {
	out := make([]domain.Factor, len(s.factors))
	for i, f := range s.factors {
		out[i] = copyFactor(f)
	}
	return out
}

// Factor looks up a factor by name.
func (s *Scale) Factor(name string) (domain.Factor, bool) {
	i, ok := s.factorByName[name]
	if !ok {
		return domain.Factor{}, false
	}
	return copyFactor(s.factors[i]), true
}

// FactorNames returns the factor names in canonical order.
func (s *Scale) FactorNames() []string {
	names := make([]string, len(s.factors))
	for i, f := range s.factors {
		names[i] = f.Name
	}
	return names
}

// Validate checks that the factor index sets partition the item ids,
// that no factor is empty and that every item names the factor that owns it.
func (s *Scale) Validate() error {
	if len(s.items) == 0 {
		return fmt.Errorf("%w: no items defined", ErrInvalidScale)
	}
	if len(s.factors) == 0 {
		return fmt.Errorf("%w: no factors defined", ErrInvalidScale)
	}

	for i, item := range s.items {
		if item.ID != i+1 {
			return fmt.Errorf("%w: item at position %d has id %d", ErrInvalidScale, i+1, item.ID)
		}
	}

	owner := make(map[int]string, len(s.items))
	for _, f := range s.factors {
		if len(f.ItemIDs) == 0 {
			return fmt.Errorf("%w: factor %q has no items", ErrInvalidScale, f.Name)
		}
		for _, id := range f.ItemIDs {
			if id < 1 || id > len(s.items) {
				return fmt.Errorf("%w: factor %q references unknown item %d", ErrInvalidScale, f.Name, id)
			}
			if prev, dup := owner[id]; dup {
				return fmt.Errorf("%w: item %d belongs to both %q and %q", ErrInvalidScale, id, prev, f.Name)
			}
			owner[id] = f.Name
		}
	}
	if len(owner) != len(s.items) {
		return fmt.Errorf("%w: items %v belong to no factor", ErrInvalidScale, s.unassigned(owner))
	}

	for _, item := range s.items {
		if owner[item.ID] != item.Factor {
			return fmt.Errorf("%w: item %d is labelled %q but indexed under %q",
				ErrInvalidScale, item.ID, item.Factor, owner[item.ID])
		}
	}

	return nil
}

func (s *Scale) unassigned(owner map[int]string) []int {
	var missing []int
	for _, item := range s.items {
		if _, ok := owner[item.ID]; !ok {
			missing = append(missing, item.ID)
		}
	}
	sort.Ints(missing)
	return missing
}
