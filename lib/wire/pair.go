package wire

// Pair is an ordered key/value element used to carry settings and info maps
// across the boundary without assuming a shared map representation.
type Pair struct {
	Key   string
	Value string
}

// PairsFromMap flattens a map into ordered pairs. Iteration order is not
// specified; callers that need a stable order sort the result.
func PairsFromMap(m map[string]string) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{Key: k, Value: v})
	}
	return pairs
}

// MapFromPairs rebuilds a map from pairs. Later duplicates win.
func MapFromPairs(pairs []Pair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}
