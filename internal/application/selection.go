package application

import "sort"

// Selection is the ephemeral multi-select state of the event listing. It is
// never persisted and is cleared by every bulk command that consumes it.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns a selection containing ids.
func NewSelection(ids ...string) *Selection {
	s := &Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.ids[id] = struct{}{}
	}
	return s
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// ToggleAll clears the selection when every id in all is already selected,
// otherwise it selects all of them.
func (s *Selection) ToggleAll(all []string) {
	if len(all) > 0 && s.Len() == len(all) {
		everySelected := true
		for _, id := range all {
			if !s.Has(id) {
				everySelected = false
				break
			}
		}
		if everySelected {
			s.Clear()
			return
		}
	}
	s.ids = make(map[string]struct{}, len(all))
	for _, id := range all {
		s.ids[id] = struct{}{}
	}
}

// Has reports whether id is selected.
func (s *Selection) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDs returns the selected ids in lexical order.
func (s *Selection) IDs() []string {
	if s.Len() == 0 {
		return nil
	}
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Clear empties the selection.
func (s *Selection) Clear() {
	if s == nil {
		return
	}
	s.ids = make(map[string]struct{})
}
