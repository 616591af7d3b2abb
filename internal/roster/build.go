package roster

import (
	"log/slog"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

// fields 是各个格式适配器得到的中间结果，统一交给 buildShift 构造成班次
type fields struct {
	date         string
	code         string
	start        string
	end          string
	clinicianRaw string
	location     string
	raw          string
}

func buildShift(f fields) domain.Shift {
	code := strings.TrimSpace(f.code)
	if code == "" {
		// 班次代码不能为空，实在解析不出来时退化为原始文本
		code = strings.TrimSpace(f.raw)
	}

	return domain.Shift{
		Date:      f.date,
		Code:      code,
		Start:     f.start,
		End:       f.end,
		Clinician: normalizeClinician(f.clinicianRaw),
		Location:  strings.TrimSpace(f.location),
		Raw:       f.raw,
	}
}

func normalizeClinician(raw string) string {
	name := StripAnnotation(raw)
	return strings.Join(strings.Fields(name), " ")
}

// Report 是一次解析的结果。Skipped 统计被跳过的事件块或单元格，只用于日志，不会逐条返回给调用方
type Report struct {
	Shifts  []domain.Shift
	Skipped int
}

func newReport() Report {
	return Report{Shifts: make([]domain.Shift, 0)}
}

// NoShifts 表示整个输入一条班次都没有解析出来，调用方需要把它和“解析成功但没有候选”区分开
func (r Report) NoShifts() bool {
	return len(r.Shifts) == 0
}

type Parser struct {
	loc         *time.Location
	logger      *slog.Logger
	now         func() time.Time
	defaultYear int
}

type Option func(*Parser)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// WithClock 替换获取当前时间的函数，表格中没有年份信息时以当前年份为准
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// WithDefaultYear 表格中没有年份信息时使用该年份，而不是当前年份
func WithDefaultYear(year int) Option {
	return func(p *Parser) {
		p.defaultYear = year
	}
}

func NewParser(loc *time.Location, opts ...Option) *Parser {
	p := &Parser{
		loc:    loc,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Location() *time.Location {
	return p.loc
}

func (p *Parser) fallbackYear() int {
	if p.defaultYear > 0 {
		return p.defaultYear
	}
	return p.now().In(p.loc).Year()
}
