package roster

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

// Cell 是表格中的一个单元格。Text 是显示的文本，Aux 是辅助表示（例如日期单元格的完整日期），只用来推断年份
type Cell struct {
	Text string
	Aux  string
}

// Grid 是一张工作表的单元格，按行、列排列，行可以长短不一
type Grid [][]Cell

func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		width = max(width, len(row))
	}
	return width
}

func (g Grid) cell(row, col int) Cell {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return Cell{}
	}
	return g[row][col]
}

// columnDates 记录每一列当前生效的日期，空字符串表示该列还没有遇到过日期表头
type columnDates []string

var (
	headerRe     = regexp.MustCompile(`^([A-Za-z]{3})[A-Za-z]*\.?,\s*([A-Za-z]{3})[A-Za-z]*\.?\s+(\d{1,2})\b`)
	yearRe       = regexp.MustCompile(`\b(\d{4})\b`)
	shiftCellRe  = regexp.MustCompile(`^(.+?)\s+-\s+(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})$`)
	nameRe       = regexp.MustCompile(`\p{L}+`)
	placeholders = map[string]bool{"": true, "--": true}
)

var weekdays = map[string]bool{
	"mon": true, "tue": true, "wed": true, "thu": true, "fri": true, "sat": true, "sun": true,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseGrid 逐行扫描表格。每一行先处理日期表头，更新对应列的生效日期；再处理班次单元格，
// 医生姓名取自班次单元格正下方的单元格。没有生效日期的列中的班次会被跳过，日期永远不靠猜
func (p *Parser) ParseGrid(grid Grid) Report {
	report := newReport()

	dates := make(columnDates, grid.Width())
	year := 0

	for r, row := range grid {
		dates, year = p.scanHeaders(row, dates, year)

		for c, cell := range row {
			shift, matched := p.scanShiftCell(grid, r, c, cell, dates)
			switch {
			case !matched:
				continue
			case shift == nil:
				report.Skipped++
			default:
				report.Shifts = append(report.Shifts, *shift)
			}
		}
	}

	if report.Skipped > 0 {
		p.logger.Debug("表格中有班次单元格位于没有日期表头的列，已跳过", "skipped", report.Skipped, "parsed", len(report.Shifts))
	}

	return report
}

// scanHeaders 处理一行中的日期表头，返回更新后的列日期和本次扫描确定下来的年份（0 表示尚未确定）
func (p *Parser) scanHeaders(row []Cell, dates columnDates, year int) (columnDates, int) {
	for c, cell := range row {
		m := headerRe.FindStringSubmatch(strings.TrimSpace(cell.Text))
		if m == nil || !weekdays[strings.ToLower(m[1])] {
			continue
		}

		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}

		if year == 0 {
			year = p.headerYear(cell)
		}

		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if t.Day() != day {
			continue
		}

		dates[c] = t.Format(DateLayout)
	}

	return dates, year
}

func (p *Parser) headerYear(cell Cell) int {
	if m := yearRe.FindStringSubmatch(cell.Aux); m != nil {
		if y, err := strconv.Atoi(m[1]); err == nil {
			return y
		}
	}
	return p.fallbackYear()
}

// scanShiftCell 判断单元格是否为班次。matched 为 false 表示不是班次；matched 为 true 但 shift 为 nil 表示
// 形状是班次，但所在列还没有日期
func (p *Parser) scanShiftCell(grid Grid, r, c int, cell Cell, dates columnDates) (*domain.Shift, bool) {
	text := strings.TrimSpace(cell.Text)
	if text == "" {
		return nil, false
	}

	m := shiftCellRe.FindStringSubmatch(lastLine(text))
	if m == nil {
		return nil, false
	}

	if c >= len(dates) || dates[c] == "" {
		return nil, true
	}

	start, ok := padClock(m[2], m[3])
	if !ok {
		return nil, false
	}
	end, ok := padClock(m[4], m[5])
	if !ok {
		return nil, false
	}

	shift := buildShift(fields{
		date:         dates[c],
		code:         m[1],
		start:        start,
		end:          end,
		clinicianRaw: nameFromCell(grid.cell(r+1, c).Text),
		raw:          cell.Text,
	})

	return &shift, true
}

func lastLine(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// nameFromCell 取单元格中第一段连续的字母作为医生姓名，空单元格和 "--" 视为未分配
func nameFromCell(text string) string {
	text = strings.TrimSpace(text)
	if placeholders[text] {
		return ""
	}
	return nameRe.FindString(text)
}
