package catalog

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// 排序方式
const (
	SortNone      = ""
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
	SortNameAsc   = "name-asc"
)

// ValidSort 判断排序参数是否合法
func ValidSort(s string) bool {
	switch s {
	case SortNone, SortPriceAsc, SortPriceDesc, SortNameAsc:
		return true
	}
	return false
}

// Predicates 筛选条件，零值字段表示不限制，各条件之间为 AND
type Predicates struct {
	Category Category
	Line     string
	Statuses []Status
	Search   string
	Material string
	Bezel    string
	Bracelet string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

// EffectiveStatus 作用域覆盖值优先，其次是目录默认值，都没有时视为 no
func EffectiveStatus(w *Watch, overrides map[string]Status) Status {
	if s, ok := overrides[w.ModelNumber]; ok && s != "" {
		return s
	}
	if w.BuyStatus != "" {
		return w.BuyStatus
	}
	return StatusNo
}

// Filter 按条件筛选并排序，不修改入参
func Filter(watches []Watch, overrides map[string]Status, p Predicates) []Watch {
	search := strings.ToLower(strings.TrimSpace(p.Search))

	var statusSet map[Status]bool
	if len(p.Statuses) > 0 {
		statusSet = make(map[Status]bool, len(p.Statuses))
		for _, s := range p.Statuses {
			statusSet[s] = true
		}
	}

	out := make([]Watch, 0, len(watches))
	for i := range watches {
		w := &watches[i]
		if p.Category != "" && CategoryOf(w.Line) != p.Category {
			continue
		}
		if p.Line != "" && w.Line != p.Line {
			continue
		}
		if statusSet != nil && !statusSet[EffectiveStatus(w, overrides)] {
			continue
		}
		if search != "" && !strings.Contains(searchText(w), search) {
			continue
		}
		if p.Material != "" && w.Material != p.Material {
			continue
		}
		if p.Bezel != "" && w.Bezel != p.Bezel {
			continue
		}
		if p.Bracelet != "" && w.Bracelet != p.Bracelet {
			continue
		}
		if p.MinPrice != nil && w.Price < *p.MinPrice {
			continue
		}
		if p.MaxPrice != nil && w.Price > *p.MaxPrice {
			continue
		}
		out = append(out, *w)
	}

	sortWatches(out, p.Sort)
	return out
}

func searchText(w *Watch) string {
	return strings.ToLower(strings.Join([]string{
		w.Title,
		w.ModelNumber,
		w.Family,
		w.CaseDescription,
		strconv.FormatFloat(w.Price, 'f', -1, 64),
	}, " "))
}

func sortWatches(watches []Watch, mode string) {
	switch mode {
	case SortPriceAsc:
		sort.SliceStable(watches, func(i, j int) bool { return watches[i].Price < watches[j].Price })
	case SortPriceDesc:
		sort.SliceStable(watches, func(i, j int) bool { return watches[i].Price > watches[j].Price })
	case SortNameAsc:
		// Collator 非并发安全，每次排序单独创建
		col := collate.New(language.Korean)
		sort.SliceStable(watches, func(i, j int) bool {
			return col.CompareString(watches[i].Title, watches[j].Title) < 0
		})
	}
}

// ParsePriceBound 解析价格边界；空串或非数字返回 nil（不限制）
func ParsePriceBound(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParsePriceRange 解析 "min-max" 形式的价格区间，任一端无法解析则该端不限制
func ParsePriceRange(s string) (lo, hi *float64) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	left, right, found := strings.Cut(s, "-")
	if !found {
		return ParsePriceBound(left), nil
	}
	return ParsePriceBound(left), ParsePriceBound(right)
}

// CountByStatus 统计各买入状态的数量
func CountByStatus(watches []Watch, overrides map[string]Status) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for i := range watches {
		counts[EffectiveStatus(&watches[i], overrides)]++
	}
	return counts
}
