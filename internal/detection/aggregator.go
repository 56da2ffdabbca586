package detection

// Summarize reduces records to one entry per distinct species name in the
// order species were first encountered. Input order is trusted as-is; names
// are compared exactly. An empty input yields an empty, non-nil slice.
func Summarize(records []Record) []SummaryEntry {
	entries := make([]SummaryEntry, 0, len(records))
	index := make(map[string]int, len(records))

	for i := range records {
		name := records[i].SpeciesCommonName
		if pos, seen := index[name]; seen {
			entries[pos].Count++
			entries[pos].Repeated = true
			continue
		}
		index[name] = len(entries)
		entries = append(entries, SummaryEntry{
			SpeciesCommonName: name,
			FirstSeen:         records[i].Timestamp,
			Count:             1,
		})
	}

	return entries
}

// Project returns every record in input order. The result is a copy so the
// caller's slice is never aliased.
func Project(records []Record) []Record {
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// RepeatedCount returns the number of entries marked Repeated.
func RepeatedCount(entries []SummaryEntry) int {
	n := 0
	for i := range entries {
		if entries[i].Repeated {
			n++
		}
	}
	return n
}
