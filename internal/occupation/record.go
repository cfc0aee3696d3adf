// Package occupation holds the occupation record model and the record store
// the index is built from. Records are immutable once a Store is constructed.
package occupation

import (
	"fmt"
	"sort"
	"strings"
)

// Attribute group names as they appear in the source dataset.
const (
	GroupKnowledge = "knowledge"
	GroupSkills    = "cross-skills"
	GroupInterests = "interests"
	GroupValues    = "values"

	// groupSkillsAlias is accepted on input and stored as GroupSkills.
	groupSkillsAlias = "skills"
)

// Item is one attribute item of an occupation, e.g. ("Mathematics", 27).
// A nil Importance means the dataset carried no rating for the item.
type Item struct {
	Name       string
	Importance *float64
}

// ImportanceOr returns the item's importance, or def when it is absent or
// zero. The dataset uses both to mean "unrated".
func (i Item) ImportanceOr(def float64) float64 {
	if i.Importance == nil || *i.Importance == 0 {
		return def
	}
	return *i.Importance
}

// Group is a named, ordered attribute group.
type Group struct {
	Name  string
	Items []Item
}

// Record is a single occupation. Groups the dataset carries beyond the four
// named ones land in Extra, ordered by name.
type Record struct {
	Code      string
	Name      string
	Knowledge []Item
	Skills    []Item
	Interests []Item
	Values    []Item
	Extra     []Group
}

// Groups returns every attribute group of the record: the named ones in a
// fixed order, then Extra. The display name is not an attribute group.
func (r *Record) Groups() []Group {
	groups := make([]Group, 0, 4+len(r.Extra))
	groups = append(groups,
		Group{Name: GroupValues, Items: r.Values},
		Group{Name: GroupKnowledge, Items: r.Knowledge},
		Group{Name: GroupInterests, Items: r.Interests},
		Group{Name: GroupSkills, Items: r.Skills},
	)
	return append(groups, r.Extra...)
}

// setGroup assigns items to the group with the given dataset name.
func (r *Record) setGroup(name string, items []Item) error {
	switch name {
	case "":
		return fmt.Errorf("attribute group with an empty name")
	case GroupKnowledge:
		r.Knowledge = items
	case GroupSkills, groupSkillsAlias:
		r.Skills = items
	case GroupInterests:
		r.Interests = items
	case GroupValues:
		r.Values = items
	default:
		i := sort.Search(len(r.Extra), func(i int) bool { return r.Extra[i].Name >= name })
		if i < len(r.Extra) && r.Extra[i].Name == name {
			r.Extra[i].Items = items
			return nil
		}
		r.Extra = append(r.Extra, Group{})
		copy(r.Extra[i+1:], r.Extra[i:])
		r.Extra[i] = Group{Name: name, Items: items}
	}
	return nil
}

// itemName is the loaders' shared normalization of a dataset item name.
func itemName(raw string) string {
	return strings.TrimSpace(raw)
}

// Store maps occupation codes to records and fixes an iteration order
// (ascending code) that every derived structure shares.
type Store struct {
	codes   []string
	records map[string]*Record
}

// NewStore builds a Store from records. Duplicate or empty codes are an error.
func NewStore(records []*Record) (*Store, error) {
	s := &Store{
		codes:   make([]string, 0, len(records)),
		records: make(map[string]*Record, len(records)),
	}
	for _, rec := range records {
		if rec.Code == "" {
			return nil, fmt.Errorf("record %q has an empty code", rec.Name)
		}
		if _, dup := s.records[rec.Code]; dup {
			return nil, fmt.Errorf("duplicate occupation code %s", rec.Code)
		}
		s.records[rec.Code] = rec
		s.codes = append(s.codes, rec.Code)
	}
	sort.Strings(s.codes)
	return s, nil
}

// Codes returns the codes in iteration order. Callers must not modify it.
func (s *Store) Codes() []string {
	return s.codes
}

// Get returns the record for code.
func (s *Store) Get(code string) (*Record, bool) {
	rec, ok := s.records[code]
	return rec, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.codes)
}

// Each calls fn for every record in iteration order.
func (s *Store) Each(fn func(rec *Record)) {
	for _, code := range s.codes {
		fn(s.records[code])
	}
}
