// Package relation provides the keyed joins and grouped reductions the
// feature pipeline is built from. Joins are hash joins: the right side is
// indexed once, then probed in left order.
package relation

// Pair is one output row of a join. A nil side means no match.
type Pair[L, R any] struct {
	Left  *L
	Right *R
}

func index[T any, K comparable](rows []T, key func(T) K) map[K][]int {
	idx := make(map[K][]int, len(rows))
	for i, r := range rows {
		k := key(r)
		idx[k] = append(idx[k], i)
	}
	return idx
}

// InnerJoin keeps left rows that match at least one right row. A left row
// matching n right rows appears n times. Output follows left order.
func InnerJoin[L, R any, K comparable](left []L, right []R, lk func(L) K, rk func(R) K) []Pair[L, R] {
	idx := index(right, rk)
	out := make([]Pair[L, R], 0, len(left))
	for i := range left {
		for _, j := range idx[lk(left[i])] {
			out = append(out, Pair[L, R]{Left: &left[i], Right: &right[j]})
		}
	}
	return out
}

// LeftJoin keeps every left row at least once; unmatched left rows carry a
// nil Right.
func LeftJoin[L, R any, K comparable](left []L, right []R, lk func(L) K, rk func(R) K) []Pair[L, R] {
	idx := index(right, rk)
	out := make([]Pair[L, R], 0, len(left))
	for i := range left {
		matches := idx[lk(left[i])]
		if len(matches) == 0 {
			out = append(out, Pair[L, R]{Left: &left[i]})
			continue
		}
		for _, j := range matches {
			out = append(out, Pair[L, R]{Left: &left[i], Right: &right[j]})
		}
	}
	return out
}

// OuterJoin is a full outer join: the left join followed by the right rows
// no left row matched, in right order, with a nil Left.
func OuterJoin[L, R any, K comparable](left []L, right []R, lk func(L) K, rk func(R) K) []Pair[L, R] {
	out := LeftJoin(left, right, lk, rk)
	leftKeys := make(map[K]struct{}, len(left))
	for _, l := range left {
		leftKeys[lk(l)] = struct{}{}
	}
	for j := range right {
		if _, ok := leftKeys[rk(right[j])]; ok {
			continue
		}
		out = append(out, Pair[L, R]{Right: &right[j]})
	}
	return out
}

// Group is the set of rows sharing one key.
type Group[K comparable, T any] struct {
	Key  K
	Rows []T
}

// GroupBy partitions rows by key. Groups come out in first-seen key order
// and keep row order inside each group.
func GroupBy[T any, K comparable](rows []T, key func(T) K) []Group[K, T] {
	pos := make(map[K]int)
	var out []Group[K, T]
	for _, r := range rows {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			i = len(out)
			pos[k] = i
			out = append(out, Group[K, T]{Key: k})
		}
		out[i].Rows = append(out[i].Rows, r)
	}
	return out
}

// Count returns the number of rows.
func Count[T any](rows []T) int { return len(rows) }

// CountDistinct counts distinct values among rows for which val reports ok.
func CountDistinct[T any, V comparable](rows []T, val func(T) (V, bool)) int {
	seen := make(map[V]struct{}, len(rows))
	for _, r := range rows {
		if v, ok := val(r); ok {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

// Sum adds the values for which val reports ok. Rows without a value are
// skipped, so an all-missing group sums to zero.
func Sum[T any](rows []T, val func(T) (float64, bool)) float64 {
	var total float64
	for _, r := range rows {
		if v, ok := val(r); ok {
			total += v
		}
	}
	return total
}

// Mean averages the values for which val reports ok. It reports false when
// no row has a value.
func Mean[T any](rows []T, val func(T) (float64, bool)) (float64, bool) {
	var total float64
	n := 0
	for _, r := range rows {
		if v, ok := val(r); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}
