package quality

// dedupe.go selects one survivor per natural key. The survivorship policy,
// in order: a record without blocking flags beats one with them, then the
// most complete record wins, then the most recent source reference (later
// file, later row), then first-seen input order. Given the same input set
// the same survivor is chosen every run. Losers are flagged DUPLICATE and
// can never enter the accepted set, whatever their own validity.

import "sort"

// workItem carries one record through the pipeline stages together with
// its accumulated flags and dedup state.
type workItem struct {
	rec       Record
	flags     []QAFlag
	seq       int // first-seen input order
	duplicate bool
	survivor  *workItem // set on duplicate losers
}

func (w *workItem) valid() bool { return !hasBlocking(w.flags) }

// completeness counts the spec fields present with a usable value. More
// complete records win survivorship ties.
func completeness(rec Record, spec EntitySpec) int {
	n := 0
	for _, fs := range spec.Fields {
		if !rec.Field(fs.Name).IsEmpty() {
			n++
		}
	}
	return n
}

// dedupe groups items by natural key and applies the survivorship policy
// to every group larger than one. Groups are visited in first-seen order;
// output state is written onto the items in place.
func dedupe(items []*workItem, spec EntitySpec) {
	groups := make(map[string][]*workItem, len(items))
	var order []string
	for _, it := range items {
		if _, seen := groups[it.rec.Key]; !seen {
			order = append(order, it.rec.Key)
		}
		groups[it.rec.Key] = append(groups[it.rec.Key], it)
	}

	for _, key := range order {
		// Records without a natural key share no identity, so they are
		// never duplicates of each other.
		if key == "" {
			continue
		}
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.valid() != b.valid() {
				return a.valid()
			}
			ca, cb := completeness(a.rec, spec), completeness(b.rec, spec)
			if ca != cb {
				return ca > cb
			}
			if a.rec.Source != b.rec.Source {
				return a.rec.Source.After(b.rec.Source)
			}
			return a.seq < b.seq
		})

		winner := group[0]
		for _, loser := range group[1:] {
			loser.duplicate = true
			loser.survivor = winner
			loser.flags = append(loser.flags, duplicateOf(winner.rec.Source))
		}
	}
}
