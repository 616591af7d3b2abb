package roster

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

var ErrEmptyWorkbook = errors.New("工作簿中没有工作表")

// ReadWorkbook 读取上传的 xlsx 文件的第一张工作表，返回补齐为矩形的单元格表格
func ReadWorkbook(r io.Reader) (Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("无法读取工作簿: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}
	sheet := sheets[0]

	// 显示值用于匹配表头和班次，原始值只用于恢复日期单元格的年份
	display, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("无法读取工作表 %s: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("无法读取工作表 %s 的原始值: %w", sheet, err)
	}

	width := 0
	for _, row := range display {
		width = max(width, len(row))
	}

	grid := make(Grid, len(display))
	for r := range display {
		grid[r] = make([]Cell, width)
		for c := 0; c < width; c++ {
			text := valueAt(display, r, c)
			grid[r][c] = Cell{
				Text: text,
				Aux:  auxValue(text, valueAt(raw, r, c)),
			}
		}
	}

	return grid, nil
}

func valueAt(rows [][]string, r, c int) string {
	if r >= len(rows) || c >= len(rows[r]) {
		return ""
	}
	return rows[r][c]
}

// auxValue 当显示值和原始值不同且原始值是数字时，把它当作 Excel 日期序列号还原成 ISO 日期
func auxValue(text, raw string) string {
	if raw == "" || raw == text {
		return raw
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}

	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}

	return t.Format(DateLayout)
}
