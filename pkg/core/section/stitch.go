package section

import "sort"

// sectionClaim is one batch's claim over a page range for a canonical
// section name, before cross-batch fusion and tie-breaking.
type sectionClaim struct {
	name       string
	start, end int
	confidence float64
}

// stitch fuses adjacent same-name claims with contiguous page ranges
// (confidence becomes the minimum of the merge) and resolves overlapping
// claims from different names by giving the disputed pages to whichever
// claim started earlier, truncating the other (spec.md §4.5).
func stitch(claims []sectionClaim) []sectionClaim {
	fused := fuseAdjacent(claims)
	return resolveOverlaps(fused)
}

// fuseAdjacent merges same-name claims whose ranges are contiguous or
// overlapping, regardless of input order (batches may complete out of
// order; stitching must not depend on that order).
func fuseAdjacent(claims []sectionClaim) []sectionClaim {
	byName := make(map[string][]sectionClaim)
	for _, c := range claims {
		byName[c.name] = append(byName[c.name], c)
	}

	var out []sectionClaim
	for name, group := range byName {
		sort.Slice(group, func(i, j int) bool { return group[i].start < group[j].start })
		cur := group[0]
		cur.name = name
		for _, next := range group[1:] {
			if next.start <= cur.end+1 {
				if next.end > cur.end {
					cur.end = next.end
				}
				if next.confidence < cur.confidence {
					cur.confidence = next.confidence
				}
				continue
			}
			out = append(out, cur)
			cur = next
			cur.name = name
		}
		out = append(out, cur)
	}
	return out
}

// resolveOverlaps applies the earlier-start-wins tie-break across
// different-name claims that still overlap after fusion.
func resolveOverlaps(claims []sectionClaim) []sectionClaim {
	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })

	out := make([]sectionClaim, 0, len(claims))
	for _, c := range claims {
		conflictEnd := -1
		for _, kept := range out {
			if c.start <= kept.end && kept.end > conflictEnd {
				conflictEnd = kept.end
			}
		}
		if conflictEnd >= c.start {
			c.start = conflictEnd + 1
		}
		if c.start > c.end {
			continue // fully consumed by an earlier-starting claim; dropped
		}
		out = append(out, c)
	}
	return out
}
