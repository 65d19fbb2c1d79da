package types

// StringSet is an insertion-ordered set of strings.
// Values are treated as immutable: With returns a new set.
type StringSet []string

func (s StringSet) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

// With returns a set containing v. If v is already present the receiver is
// returned unchanged.
func (s StringSet) With(v string) StringSet {
	if s.Contains(v) {
		return s
	}
	c := make(StringSet, len(s), len(s)+1)
	copy(c, s)
	return append(c, v)
}

func (s StringSet) Copy() StringSet {
	if s == nil {
		return nil
	}
	c := make(StringSet, len(s))
	copy(c, s)
	return c
}
