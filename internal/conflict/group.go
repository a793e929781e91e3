package conflict

// Bucket is one group of items sharing a key.
type Bucket[T any] struct {
	Key      string
	Items    []T
	Distinct int
	Conflict bool
}

// Group partitions items by keyFn and flags disagreement by valueFn.
//
// Buckets come back in first-seen key order and items keep their input order
// within a bucket. keyFn returns ok=false to drop an item. valueFn returns the
// normalized comparison key of an item's value; a bucket conflicts when it
// holds more than one distinct comparison key.
func Group[T any](items []T, keyFn func(T) (string, bool), valueFn func(T) string) []Bucket[T] {
	index := make(map[string]int)
	var buckets []Bucket[T]
	var seen []map[string]struct{}

	for _, it := range items {
		key, ok := keyFn(it)
		if !ok {
			continue
		}
		i, exists := index[key]
		if !exists {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket[T]{Key: key})
			seen = append(seen, make(map[string]struct{}))
		}
		buckets[i].Items = append(buckets[i].Items, it)
		seen[i][valueFn(it)] = struct{}{}
	}

	for i := range buckets {
		buckets[i].Distinct = len(seen[i])
		buckets[i].Conflict = buckets[i].Distinct > 1
	}
	return buckets
}
