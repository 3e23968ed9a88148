package world

import "math"

// Quotas maps a tile-type name to its target cell count for one run.
type Quotas map[string]int

// Total returns the sum of all targets.
func (q Quotas) Total() int {
	n := 0
	for _, c := range q {
		n += c
	}
	return n
}

// ComputeQuotas converts spawn weights into exact cell counts summing to total.
// Each type gets round(total * weight / sum) with ties to even. Whatever the
// rounding gains or loses is added to the first type in the list, so with many
// weights on a small grid that one type can be visibly over- or
// under-represented (and its target can even go negative).
func ComputeQuotas(types []TileType, total int) Quotas {
	q := make(Quotas, len(types))
	if len(types) == 0 {
		return q
	}

	sum := 0.0
	for _, t := range types {
		sum += t.SpawnWeight
	}
	if sum <= 0 {
		q[types[0].Name] = total
		return q
	}

	assigned := 0
	for _, t := range types {
		count := int(math.RoundToEven(float64(total) * (t.SpawnWeight / sum)))
		q[t.Name] += count
		assigned += count
	}

	if assigned != total {
		q[types[0].Name] += total - assigned
	}
	return q
}
