package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"watch-reserve/backend/internal/access"
	"watch-reserve/backend/internal/catalog"
	"watch-reserve/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出调用者当前作用域的买入清单（全部型号）
//   - 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	ExportBuyList(ctx context.Context, callerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo    *repository.Repository
	catalog *catalog.Catalog
	logger  *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, cat *catalog.Catalog, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, catalog: cat, logger: logger}
}

var buyListHeaders = []string{"모델번호", "제품명", "라인", "소재", "가격", "상태"}

// ═══════════════════════════════════════════════════════════
// ExportBuyList 导出买入清单为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "매입리스트"
//   - 按状态 buy → pending → no 分组，组内保持目录顺序
//   - 价格列为数值，便于在表格中排序汇总

func (s *exportService) ExportBuyList(ctx context.Context, callerID string) (*bytes.Buffer, string, error) {
	caller, err := requireFeature(ctx, s.repo, s.logger, callerID, access.TabReports)
	if err != nil {
		return nil, "", err
	}
	bucketID := access.ResolveScope(caller.Actor()).BucketID()

	rows, err := s.repo.WatchStatus.ListByScope(ctx, bucketID)
	if err != nil {
		s.logger.Error("查询作用域状态失败", zap.String("scope_id", bucketID), zap.Error(err))
		return nil, "", err
	}
	overrides := overridesOf(rows)
	all := s.catalog.All()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "매입리스트"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "B", 36)
	f.SetColWidth(sheetName, "C", "D", 20)
	f.SetColWidth(sheetName, "E", "E", 16)
	f.SetColWidth(sheetName, "F", "F", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	priceStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0

	for i, h := range buyListHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(buyListHeaders)-1), 1), headerStyle)

	row := 2
	for _, st := range catalog.Statuses {
		for i := range all {
			w := &all[i]
			if catalog.EffectiveStatus(w, overrides) != st {
				continue
			}
			f.SetCellValue(sheetName, cell("A", row), w.ModelNumber)
			f.SetCellValue(sheetName, cell("B", row), w.Title)
			f.SetCellValue(sheetName, cell("C", row), catalog.LineName(w.Line))
			f.SetCellValue(sheetName, cell("D", row), catalog.MaterialName(w.Material))
			f.SetCellValue(sheetName, cell("E", row), w.Price)
			f.SetCellStyle(sheetName, cell("E", row), cell("E", row), priceStyle)
			f.SetCellValue(sheetName, cell("F", row), st.Label())
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("매입리스트_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
