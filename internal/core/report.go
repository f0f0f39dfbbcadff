package core

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Uncategorized is the sentinel bucket for records with a blank category.
const Uncategorized = "Uncategorized"

// newCollator gives locale-aware alphabetical ordering for user-entered
// labels (item names, store names). Collators are not safe for concurrent
// use, so each call builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Portuguese)
}

// DayTotals summarizes the records of a single date.
type DayTotals struct {
	Date  Date  `json:"date"`
	Total Money `json:"total"`
	Count int   `json:"count"`
}

// DailyTotals sums value and count over the records whose date equals the
// given day exactly.
func DailyTotals(date Date, records []Record) DayTotals {
	out := DayTotals{Date: date}
	for _, r := range records {
		if !r.Date.Equal(date.Time) {
			continue
		}
		out.Total.Cents += r.Value.Cents
		out.Count++
	}
	return out
}

// MonthTotals summarizes the records of a single month.
type MonthTotals struct {
	Month       string `json:"month"`
	Total       Money  `json:"total"`
	Count       int    `json:"count"`
	UniqueItems int    `json:"uniqueItems"`
}

// MonthlyTotals sums value, count and distinct item count over the records
// whose month equals the given YYYY-MM key exactly.
func MonthlyTotals(month string, records []Record) MonthTotals {
	out := MonthTotals{Month: month}
	items := make(map[string]struct{})
	for _, r := range records {
		if r.Month != month {
			continue
		}
		out.Total.Cents += r.Value.Cents
		out.Count++
		items[r.Item] = struct{}{}
	}
	out.UniqueItems = len(items)
	return out
}

// CheapestEntry is the best price seen for one item and the store that
// achieved it.
type CheapestEntry struct {
	Item      string     `json:"item"`
	Store     string     `json:"store"`
	Value     Money      `json:"value"`
	UnitPrice *UnitPrice `json:"unitPrice"`
}

// CheapestByItem finds, for each distinct item, the purchase with the
// lowest price. Records with a derived unit price rank by it; the rest
// rank by raw value. Ties keep the first-seen record. The result is in
// locale-aware alphabetical item order.
func CheapestByItem(records []Record) []CheapestEntry {
	type ranked struct {
		entry CheapestEntry
		// unit prices are in ten-thousandths, raw values in cents; raw
		// values are rescaled so a unit-priced record and a raw one compare
		// on a common scale.
		metric int64
	}
	best := make(map[string]ranked)
	order := make([]string, 0)
	for _, r := range records {
		metric := r.Value.Cents * 100
		if r.UnitPrice != nil {
			metric = r.UnitPrice.TenThousandths
		}
		cur, seen := best[r.Item]
		if !seen {
			order = append(order, r.Item)
		}
		if !seen || metric < cur.metric {
			best[r.Item] = ranked{
				entry: CheapestEntry{
					Item:      r.Item,
					Store:     r.Store,
					Value:     r.Value,
					UnitPrice: r.UnitPrice,
				},
				metric: metric,
			}
		}
	}
	out := make([]CheapestEntry, 0, len(order))
	for _, item := range order {
		out = append(out, best[item].entry)
	}
	c := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i].Item, out[j].Item) < 0
	})
	return out
}

// CategoryTotal is the spend of one category bucket.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
}

// categoryOf maps blank categories to the sentinel bucket.
func categoryOf(r Record) string {
	if r.Category == "" {
		return Uncategorized
	}
	return r.Category
}

// CategoryTotals groups value sums by category, ordered by descending
// total with a stable name tie-break.
func CategoryTotals(records []Record) []CategoryTotal {
	totals := make(map[string]int64)
	order := make([]string, 0)
	for _, r := range records {
		cat := categoryOf(r)
		if _, ok := totals[cat]; !ok {
			order = append(order, cat)
		}
		totals[cat] += r.Value.Cents
	}
	out := make([]CategoryTotal, 0, len(order))
	for _, cat := range order {
		out = append(out, CategoryTotal{Category: cat, Total: Money{Cents: totals[cat]}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total.Cents != out[j].Total.Cents {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ItemSummary is the per-item breakdown inside a category drill-down.
type ItemSummary struct {
	Item          string `json:"item"`
	Subtotal      Money  `json:"subtotal"`
	CheapestStore string `json:"cheapestStore"`
	CheapestValue Money  `json:"cheapestValue"`
}

// CategoryDrilldown is the detail view of one category within a scope.
type CategoryDrilldown struct {
	Category string        `json:"category"`
	Total    Money         `json:"total"`
	Records  []Record      `json:"records"`
	Items    []ItemSummary `json:"items"`
}

// DrilldownCategory lists a category's records newest first (date desc,
// then id desc) plus a per-item subtotal and cheapest purchase, ordered by
// subtotal descending. The cheapest-purchase column compares raw values.
func DrilldownCategory(category string, records []Record) CategoryDrilldown {
	out := CategoryDrilldown{Category: category}
	for _, r := range records {
		if categoryOf(r) != category {
			continue
		}
		out.Records = append(out.Records, r)
		out.Total.Cents += r.Value.Cents
	}
	sort.SliceStable(out.Records, func(i, j int) bool {
		a, b := out.Records[i], out.Records[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date.Time)
		}
		return a.ID > b.ID
	})

	subtotals := make(map[string]*ItemSummary)
	order := make([]string, 0)
	for _, r := range out.Records {
		s, ok := subtotals[r.Item]
		if !ok {
			s = &ItemSummary{Item: r.Item, CheapestStore: r.Store, CheapestValue: r.Value}
			subtotals[r.Item] = s
			order = append(order, r.Item)
		} else if r.Value.Cents < s.CheapestValue.Cents {
			s.CheapestStore = r.Store
			s.CheapestValue = r.Value
		}
		s.Subtotal.Cents += r.Value.Cents
	}
	for _, item := range order {
		out.Items = append(out.Items, *subtotals[item])
	}
	sort.SliceStable(out.Items, func(i, j int) bool {
		return out.Items[i].Subtotal.Cents > out.Items[j].Subtotal.Cents
	})
	return out
}

// SortStoreNames orders vendor names alphabetically with locale-aware
// collation, as selection widgets expect.
func SortStoreNames(names []string) {
	c := newCollator()
	sort.SliceStable(names, func(i, j int) bool {
		return c.CompareString(names[i], names[j]) < 0
	})
}
