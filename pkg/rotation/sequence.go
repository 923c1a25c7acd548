package rotation

import "strings"

// DefaultCategories is the stock rotation order.
var DefaultCategories = []Category{"Leaf", "Seed", "Root", "Fruit", "Cover"}

// Sequence is a fixed cyclic order of categories with a default start.
type Sequence struct {
	cats  []Category
	index map[Category]int
	start int
}

// NewSequence validates the order. An empty start means the first category.
func NewSequence(categories []Category, start Category) (*Sequence, error) {
	if len(categories) == 0 {
		return nil, configErr("sequence", "rotation sequence is empty")
	}
	s := &Sequence{
		cats:  make([]Category, len(categories)),
		index: make(map[Category]int, len(categories)),
	}
	for i, c := range categories {
		if strings.TrimSpace(string(c)) == "" {
			return nil, configErr("sequence", "blank category at position %d", i+1)
		}
		if _, dup := s.index[c]; dup {
			return nil, configErr("sequence", "duplicate category %q", c)
		}
		s.cats[i] = c
		s.index[c] = i
	}
	if start != "" {
		idx, ok := s.index[start]
		if !ok {
			return nil, configErr("start_category", "%q is not in the rotation sequence", start)
		}
		s.start = idx
	}
	return s, nil
}

func (s *Sequence) Len() int { return len(s.cats) }

// Categories returns a copy of the order.
func (s *Sequence) Categories() []Category {
	out := make([]Category, len(s.cats))
	copy(out, s.cats)
	return out
}

func (s *Sequence) Start() Category { return s.cats[s.start] }

func (s *Sequence) Contains(c Category) bool {
	_, ok := s.index[c]
	return ok
}

func (s *Sequence) Index(c Category) (int, bool) {
	i, ok := s.index[c]
	return i, ok
}

// Advance returns the category steps positions after c. An unknown c is
// treated as the start category.
func (s *Sequence) Advance(c Category, steps int) Category {
	i, ok := s.index[c]
	if !ok {
		i = s.start
	}
	return s.cats[s.wrap(i+steps)]
}

// Next is Advance(c, 1).
func (s *Sequence) Next(c Category) Category { return s.Advance(c, 1) }

// Offset returns the category index positions after the start.
func (s *Sequence) Offset(index int) Category {
	return s.cats[s.wrap(s.start+index)]
}

func (s *Sequence) wrap(i int) int {
	n := len(s.cats)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
