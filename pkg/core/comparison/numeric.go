package comparison

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"disclosurecore/pkg/core/models"
)

// unitFactors converts a value expressed in the map key's unit into the
// base unit 円 (yen), per spec.md §4.10's 百万円↔億円↔千円 factor table.
var unitFactors = map[string]float64{
	"円":   1,
	"千円":  1e3,
	"百万円": 1e6,
	"億円":  1e8,
}

// unitSuffixes holds unitFactors' keys sorted longest-first, so a
// compound unit like 百万円 is matched against itself before the bare
// 円 suffix it also contains — every unitFactors key other than 円 has
// 円 as a literal substring, so checking shortest-first would make
// strings.Contains match 円 every time regardless of which unit was
// actually present.
var unitSuffixes = sortedUnitSuffixes()

func sortedUnitSuffixes() []string {
	out := make([]string, 0, len(unitFactors))
	for suffix := range unitFactors {
		out = append(out, suffix)
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

var nonDigit = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// canonicalName lowercases and strips punctuation so item names compare
// regardless of spacing/case/symbol variance (spec.md §4.10).
func canonicalName(s string) string {
	return nonDigit.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "")
}

// DiffNumerical matches financial data points across mapped sections by
// canonical item name, normalizes units, and computes differences.
func DiffNumerical(mappings []models.SectionMapping, a, b map[string]models.SectionInfo, significantPct float64) []models.NumericalDifference {
	var out []models.NumericalDifference
	for _, m := range mappings {
		secA, okA := a[m.Doc1Section]
		secB, okB := b[m.Doc2Section]
		if !okA || !okB || secA.Content == nil || secB.Content == nil {
			continue
		}

		byName := make(map[string]models.FinancialDataPoint, len(secB.Content.FinancialData))
		for _, fd := range secB.Content.FinancialData {
			byName[canonicalName(fd.Item)] = fd
		}

		for _, fdA := range secA.Content.FinancialData {
			fdB, ok := byName[canonicalName(fdA.Item)]
			if !ok {
				continue
			}
			diff, ok := diffPoint(m.Doc1Section, fdA, fdB, significantPct)
			if ok {
				out = append(out, diff)
			}
		}
	}
	return out
}

func diffPoint(section string, a, b models.FinancialDataPoint, significantPct float64) (models.NumericalDifference, bool) {
	v1, ok1 := numericValue(a.Value)
	v2, ok2 := numericValue(b.Value)
	if !ok1 || !ok2 || math.IsNaN(v1) || math.IsNaN(v2) || math.IsInf(v1, 0) || math.IsInf(v2, 0) {
		return models.NumericalDifference{}, false
	}

	norm1, unit1 := normalize(v1, a.Unit)
	norm2, unit2 := normalize(v2, b.Unit)

	diff := models.NumericalDifference{
		Section:        section,
		ItemName:       a.Item,
		Value1:         norm1,
		Value2:         norm2,
		Difference:     norm2 - norm1,
		Unit1:          a.Unit,
		Unit2:          b.Unit,
		NormalizedUnit: "円",
	}
	if unit1 == "" || unit2 == "" {
		// No known unit on one side — compare raw values as given.
		diff.Difference = v2 - v1
		diff.Value1, diff.Value2 = v1, v2
		diff.NormalizedUnit = ""
	}

	if diff.Value1 != 0 {
		pct := diff.Difference / math.Abs(diff.Value1)
		diff.DifferencePct = &pct
		diff.IsSignificant = math.Abs(pct) >= significantPct || ordersOfMagnitudeDiffer(diff.Value1, diff.Value2)
	} else {
		diff.IsSignificant = diff.Value2 != 0
	}
	return diff, true
}

func ordersOfMagnitudeDiffer(v1, v2 float64) bool {
	if v1 == 0 || v2 == 0 {
		return v1 != v2
	}
	o1 := math.Floor(math.Log10(math.Abs(v1)))
	o2 := math.Floor(math.Log10(math.Abs(v2)))
	return o1 != o2
}

// normalize converts v expressed in unit into base yen, returning the
// matched unit name (empty if unit is unrecognized).
func normalize(v float64, unit string) (float64, string) {
	unit = strings.TrimSpace(unit)
	for _, suffix := range unitSuffixes {
		if strings.Contains(unit, suffix) {
			return v * unitFactors[suffix], suffix
		}
	}
	return v, ""
}

// numericValue extracts a scalar float from a ScalarOrSeries, stripping
// commas and common currency symbols. Series values are not diffed here
// — the per-section LLM analysis handles period-keyed comparisons.
func numericValue(v models.ScalarOrSeries) (float64, bool) {
	if v.Scalar == nil {
		return 0, false
	}
	s := strings.TrimSpace(*v.Scalar)
	s = strings.TrimPrefix(s, "¥")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.Trim(s, "()")
	}
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)
