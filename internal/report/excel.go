package report

import (
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/xuri/excelize/v2"
)

// 报表适配器：把排班引擎算好的逐日结果写进电子表格。
// 每个岗位声明了一个基准单元格坐标，岗位名写在基准格，
// 从基准格的下一行开始纵向填入每一天的分配结果。

// NewWorkbook 创建一个空工作簿
func NewWorkbook() *excelize.File {
	return excelize.NewFile()
}

// SheetName 返回某年某月报表工作表的名称
func SheetName(year int, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// WriteMonth 在工作簿中新建一张工作表并写入一个月的排班结果。
// 没有声明输出坐标的岗位不会出现在报表中。
func WriteMonth(f *excelize.File, sheet string, positions []*domain.Position, plans []*domain.DayPlan) error {
	index, err := f.NewSheet(sheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	// 日期列固定写在 A 列，方便与各岗位的纵向结果对照
	if err := f.SetCellValue(sheet, "A1", "日付"); err != nil {
		return err
	}
	for i, plan := range plans {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, plan.DateKey()); err != nil {
			return err
		}
	}

	for _, pos := range positions {
		if pos.OutputLocation == "" {
			continue
		}

		col, row, err := excelize.CellNameToCoordinates(pos.OutputLocation)
		if err != nil {
			return fmt.Errorf("岗位 %s 的输出坐标 %s 非法: %w", pos.Name, pos.OutputLocation, err)
		}

		// 岗位名作为表头写在基准格
		if err := f.SetCellValue(sheet, pos.OutputLocation, pos.Name); err != nil {
			return err
		}

		for i, plan := range plans {
			cell, err := excelize.CoordinatesToCellName(col, row+1+i)
			if err != nil {
				return err
			}
			value := strings.Join(plan.Assignments[pos.ID], "、")
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// RemoveDefaultSheet 删除 excelize 自动创建的默认工作表
func RemoveDefaultSheet(f *excelize.File) {
	// 工作簿里至少要有一张工作表，删除失败时忽略即可
	_ = f.DeleteSheet("Sheet1")
}
