package observable

type iterateeKind int

const (
	byKey iterateeKind = iota
	byPredicate
	byAttributeMatch
)

// Iteratee selects attribute sets. Build one with ByKey, ByPredicate or
// ByAttributeMatch.
type Iteratee struct {
	kind  iterateeKind
	key   string
	pred  func(Attributes) bool
	match Attributes
}

// ByKey selects attribute sets where key holds a truthy value: present,
// non-nil, and not false, zero or the empty string.
func ByKey(key string) Iteratee {
	return Iteratee{kind: byKey, key: key}
}

// ByPredicate selects attribute sets for which fn returns true.
func ByPredicate(fn func(Attributes) bool) Iteratee {
	return Iteratee{kind: byPredicate, pred: fn}
}

// ByAttributeMatch selects attribute sets containing every entry of attrs.
func ByAttributeMatch(attrs Attributes) Iteratee {
	return Iteratee{kind: byAttributeMatch, match: attrs}
}

// Value returns what the iteratee extracts: the key's value for ByKey, the
// test result for the other kinds.
func (it Iteratee) Value(attrs Attributes) any {
	if it.kind == byKey {
		return attrs[it.key]
	}
	return it.Predicate(DeepEqual)(attrs)
}

// Predicate resolves the iteratee to a test function once, comparing
// values with equal.
func (it Iteratee) Predicate(equal func(a, b any) bool) func(Attributes) bool {
	switch it.kind {
	case byKey:
		key := it.key
		return func(attrs Attributes) bool { return truthy(attrs[key]) }
	case byPredicate:
		if it.pred == nil {
			return func(Attributes) bool { return false }
		}
		return it.pred
	default:
		match := it.match
		return func(attrs Attributes) bool {
			for k, want := range match {
				got, ok := attrs[k]
				if !ok || !equal(got, want) {
					return false
				}
			}
			return true
		}
	}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	default:
		return true
	}
}
