// Package catalog 静态商品目录：加载、筛选与排序。
package catalog

// Status 买入状态
type Status string

const (
	StatusBuy     Status = "buy"
	StatusPending Status = "pending"
	StatusNo      Status = "no"
)

// Statuses 全部买入状态
var Statuses = []Status{StatusBuy, StatusPending, StatusNo}

// ParseStatus 解析买入状态
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusBuy, StatusPending, StatusNo:
		return Status(s), true
	}
	return "", false
}

var statusLabels = map[Status]string{
	StatusBuy:     "무조건 매입",
	StatusPending: "검토 필요",
	StatusNo:      "매입 불가",
}

// Label 状态的展示文案
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Watch 目录中的一条商品记录，会话内只读
type Watch struct {
	ModelNumber     string  `json:"model_number"`
	Title           string  `json:"title"`
	Line            string  `json:"line"`
	Family          string  `json:"family"`
	Material        string  `json:"material"`
	Bezel           string  `json:"bezel,omitempty"`
	Bracelet        string  `json:"bracelet,omitempty"`
	CaseDescription string  `json:"case_description"`
	Price           float64 `json:"price"`
	FormattedPrice  string  `json:"formatted_price"`
	ImageURL        string  `json:"image_url"`
	BuyStatus       Status  `json:"buy_status,omitempty"`
}

// Category 系列大类
type Category string

const (
	CategoryClassic      Category = "classic"
	CategoryProfessional Category = "professional"
)

var lineCategories = map[string]Category{
	"1908":               CategoryClassic,
	"datejust":           CategoryClassic,
	"day-date":           CategoryClassic,
	"lady-datejust":      CategoryClassic,
	"land-dweller":       CategoryClassic,
	"oyster-perpetual":   CategoryClassic,
	"sky-dweller":        CategoryClassic,
	"air-king":           CategoryProfessional,
	"cosmograph-daytona": CategoryProfessional,
	"deepsea":            CategoryProfessional,
	"explorer":           CategoryProfessional,
	"gmt-master-ii":      CategoryProfessional,
	"sea-dweller":        CategoryProfessional,
	"submariner":         CategoryProfessional,
	"yacht-master":       CategoryProfessional,
}

// CategoryOf 返回系列所属大类；未登记的系列返回空串
func CategoryOf(line string) Category {
	return lineCategories[line]
}

var lineNames = map[string]string{
	"1908":               "1908",
	"air-king":           "에어킹",
	"cosmograph-daytona": "코스모그래프 데이토나",
	"datejust":           "데이트저스트",
	"day-date":           "데이데이트",
	"deepsea":            "딥씨",
	"explorer":           "익스플로러",
	"gmt-master-ii":      "GMT-마스터 II",
	"lady-datejust":      "레이디 데이트저스트",
	"land-dweller":       "랜드-드웰러",
	"oyster-perpetual":   "오이스터 퍼페추얼",
	"sea-dweller":        "씨-드웰러",
	"sky-dweller":        "스카이-드웰러",
	"submariner":         "서브마리너",
	"yacht-master":       "요트-마스터",
}

var materialNames = map[string]string{
	"alt-steel":             "오이스터스틸",
	"alt-18-ct-yellow-gold": "18캐럿 옐로 골드",
	"alt-18-ct-pink-gold":   "18캐럿 에버로즈 골드",
	"alt-18-ct-white-gold":  "18캐럿 화이트 골드",
	"alt-platinum":          "플래티넘",
	"alt-rolesor-everose":   "에버로즈 롤레조",
	"alt-rolesor-yellow":    "옐로 롤레조",
	"alt-rolesium":          "롤레슘",
}

// LineName 系列展示名，未登记时原样返回
func LineName(line string) string {
	if n, ok := lineNames[line]; ok {
		return n
	}
	return line
}

// MaterialName 材质展示名，未登记时原样返回
func MaterialName(material string) string {
	if n, ok := materialNames[material]; ok {
		return n
	}
	return material
}

// ImageObject 商品图片在对象存储中的路径
func (w *Watch) ImageObject() string {
	return "images/" + w.Line + "/" + w.ModelNumber + ".jpg"
}
