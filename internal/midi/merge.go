package midi

import "sort"

// Merge stably merges several already-populated per-source event slices
// into one, in the scheduler's tie-break order. It allocates one result
// slice sized to the total input length, so it is not used on the audio
// thread; the scheduler instead sorts each preallocated graph.EventPort in
// place with the same Less order.
func Merge(sources ...[]Event) []Event {
	total := 0
	for _, s := range sources {
		total += len(s)
	}
	out := make([]Event, 0, total)
	for _, s := range sources {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
