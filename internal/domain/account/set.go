package account

import "errors"

// ErrNoAccountsConfigured indicates the owner's account set is incomplete:
// the main account or one of the configured category accounts is missing.
var ErrNoAccountsConfigured = errors.New("owner has no complete account set configured")

// Set is an owner's full account hierarchy: the main account first, then
// the category accounts in the order the distribution policy configures them.
type Set struct {
	Main       *Account
	Categories []*Account

	byCategory map[string]*Account
}

// NewSet assembles a Set from the owner's stored accounts, ordered by
// categoryOrder. It fails with ErrNoAccountsConfigured if the main account
// or any listed category account is absent.
func NewSet(accounts []*Account, categoryOrder []string) (*Set, error) {
	s := &Set{byCategory: make(map[string]*Account, len(categoryOrder))}
	for _, acc := range accounts {
		if acc.Kind.IsMain() {
			s.Main = acc
			continue
		}
		s.byCategory[acc.Kind.CategoryName()] = acc
	}
	if s.Main == nil {
		return nil, ErrNoAccountsConfigured
	}
	for _, category := range categoryOrder {
		acc, ok := s.byCategory[category]
		if !ok {
			return nil, ErrNoAccountsConfigured
		}
		s.Categories = append(s.Categories, acc)
	}
	return s, nil
}

// Category returns the sub-account for the given category, nil if absent.
func (s *Set) Category(name string) *Account {
	return s.byCategory[name]
}

// All returns the accounts in listing order: main first, then categories.
func (s *Set) All() []*Account {
	out := make([]*Account, 0, len(s.Categories)+1)
	out = append(out, s.Main)
	return append(out, s.Categories...)
}

// Total is the owner's displayed aggregate: the reserve held on the main
// account plus every category balance. The reserve is tracked separately
// from category allocations, so this sum never double-counts.
func (s *Set) Total() int64 {
	total := s.Main.Balance
	for _, acc := range s.Categories {
		total += acc.Balance
	}
	return total
}
