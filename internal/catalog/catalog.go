package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

var ErrEmptyCatalog = errors.New("商品目录为空")

// Option 筛选下拉选项
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Catalog 进程内只读的商品目录
type Catalog struct {
	watches []Watch
	byModel map[string]int
}

// New 由商品列表构建目录；重复型号保留第一条
func New(watches []Watch) *Catalog {
	c := &Catalog{byModel: make(map[string]int, len(watches))}
	for _, w := range watches {
		if w.ModelNumber == "" {
			continue
		}
		if _, dup := c.byModel[w.ModelNumber]; dup {
			continue
		}
		c.byModel[w.ModelNumber] = len(c.watches)
		c.watches = append(c.watches, w)
	}
	return c
}

// Load 从 JSON 数组读取目录
func Load(r io.Reader) (*Catalog, error) {
	var watches []Watch
	if err := json.NewDecoder(r).Decode(&watches); err != nil {
		return nil, fmt.Errorf("解析商品目录失败: %w", err)
	}
	c := New(watches)
	if c.Len() == 0 {
		return nil, ErrEmptyCatalog
	}
	return c, nil
}

// Len 商品数量
func (c *Catalog) Len() int {
	return len(c.watches)
}

// All 返回全部商品的副本
func (c *Catalog) All() []Watch {
	out := make([]Watch, len(c.watches))
	copy(out, c.watches)
	return out
}

// Get 按型号查询
func (c *Catalog) Get(model string) (Watch, bool) {
	i, ok := c.byModel[model]
	if !ok {
		return Watch{}, false
	}
	return c.watches[i], true
}

// ModelNumbers 全部型号（目录顺序）
func (c *Catalog) ModelNumbers() []string {
	out := make([]string, len(c.watches))
	for i, w := range c.watches {
		out[i] = w.ModelNumber
	}
	return out
}

// LineOptions 目录中出现过的系列，按值排序
func (c *Catalog) LineOptions() []Option {
	return c.options(func(w Watch) string { return w.Line }, LineName)
}

// MaterialOptions 目录中出现过的材质，按值排序
func (c *Catalog) MaterialOptions() []Option {
	return c.options(func(w Watch) string { return w.Material }, MaterialName)
}

func (c *Catalog) options(key func(Watch) string, label func(string) string) []Option {
	seen := make(map[string]bool)
	var values []string
	for _, w := range c.watches {
		v := key(w)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)

	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: label(v)}
	}
	return opts
}
