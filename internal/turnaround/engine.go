package turnaround

import (
	"slices"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

type Engine struct {
	loc     *time.Location
	minRest time.Duration
}

// New minRest 不大于 0 时使用 DefaultMinRest
func New(loc *time.Location, minRest time.Duration) *Engine {
	if minRest <= 0 {
		minRest = DefaultMinRest
	}
	return &Engine{loc: loc, minRest: minRest}
}

func (e *Engine) MinRest() time.Duration {
	return e.minRest
}

// Span 把班次的日期和时刻组合成院区时区下的时刻。结束时刻不晚于开始时刻时，结束时刻取第二天的同一钟点，
// 所以夏令时切换当晚的跨夜班次时长会多或少一个小时
func (e *Engine) Span(s domain.Shift) (Span, bool) {
	if s.Start == "" || s.End == "" {
		return Span{}, false
	}

	day, err := time.ParseInLocation(domain.DateLayout, s.Date, e.loc)
	if err != nil {
		return Span{}, false
	}
	startClock, err := time.Parse(domain.ClockLayout, s.Start)
	if err != nil {
		return Span{}, false
	}
	endClock, err := time.Parse(domain.ClockLayout, s.End)
	if err != nil {
		return Span{}, false
	}

	endDay := day
	if !endClock.After(startClock) {
		endDay = day.AddDate(0, 0, 1)
	}

	return Span{
		Start: time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), 0, 0, e.loc),
		End:   time.Date(endDay.Year(), endDay.Month(), endDay.Day(), endClock.Hour(), endClock.Minute(), 0, 0, e.loc),
	}, true
}

// IsShortRest 休息时间严格小于最小休息时间才算过短，正好等于不算
func (e *Engine) IsShortRest(prevEnd, nextStart time.Time) bool {
	return nextStart.Sub(prevEnd) < e.minRest
}

// Analyze 找出与 shifts[selected] 同一天的其他班次，并分别检查交换之后双方的休息时间：
//   - 我方：我在候选班次开始之前最后一个结束的班次，到候选班次开始的间隔
//   - 对方：候选医生在所选班次开始之前最后一个结束的班次，到所选班次开始的间隔
//
// 交换之后所选班次不再属于我，候选班次也不再属于对方，所以二者分别不计入各自的历史。
// 没有前一个班次的一方不做检查。返回的候选保持 shifts 中的原始顺序
func (e *Engine) Analyze(shifts []domain.Shift, clinician string, selected int) ([]domain.TradeCandidate, error) {
	if selected < 0 || selected >= len(shifts) {
		return nil, ErrShiftNotFound
	}

	mine := shifts[selected]
	if !mine.HasClinician() || mine.Clinician != clinician {
		return nil, ErrNotOwner
	}

	spans := make([]resolved, len(shifts))
	for i, s := range shifts {
		span, ok := e.Span(s)
		spans[i] = resolved{span: span, ok: ok}
	}
	if !spans[selected].ok {
		return nil, ErrUnresolvableShift
	}
	mineSpan := spans[selected].span

	candidates := make([]domain.TradeCandidate, 0)
	for i, candidate := range shifts {
		if i == selected || candidate.Date != mine.Date || !spans[i].ok {
			continue
		}
		candidateSpan := spans[i].span

		tc := domain.TradeCandidate{Shift: candidate}

		// 我方
		if end, found := latestEndBefore(shifts, spans, clinician, selected, candidateSpan.Start); found {
			tc.MyRestMinutes = restMinutes(end, candidateSpan.Start)
			tc.MyShort = e.IsShortRest(end, candidateSpan.Start)
		}

		// 对方，未分配医生的班次没有历史可言
		if candidate.HasClinician() {
			if end, found := latestEndBefore(shifts, spans, candidate.Clinician, i, mineSpan.Start); found {
				tc.TheirRestMinutes = restMinutes(end, mineSpan.Start)
				tc.TheirShort = e.IsShortRest(end, mineSpan.Start)
			}
		}

		tc.HasShort = tc.MyShort || tc.TheirShort
		candidates = append(candidates, tc)
	}

	return candidates, nil
}

// latestEndBefore 在 clinician 的班次中（排除下标为 exclude 的那个）找结束时刻严格早于 before 的最晚结束时刻
func latestEndBefore(shifts []domain.Shift, spans []resolved, clinician string, exclude int, before time.Time) (time.Time, bool) {
	var latest time.Time
	found := false

	for j, s := range shifts {
		if j == exclude || !spans[j].ok || !s.HasClinician() || s.Clinician != clinician {
			continue
		}

		end := spans[j].span.End
		if !end.Before(before) {
			continue
		}
		if !found || end.After(latest) {
			latest = end
			found = true
		}
	}

	return latest, found
}

func restMinutes(prevEnd, nextStart time.Time) *int64 {
	minutes := int64(nextStart.Sub(prevEnd) / time.Minute)
	return &minutes
}

// FindShift 按 (医生, 日期, 班次代码, 开始时间) 定位班次，start 为空时不比较开始时间。
// 找到了同样的班次但属于别人时返回 ErrNotOwner。未分配的班次不属于任何人，clinician 为空时直接返回 ErrShiftNotFound
func FindShift(shifts []domain.Shift, clinician, date, code, start string) (int, error) {
	if clinician == "" {
		return -1, ErrShiftNotFound
	}

	other := false

	for i, s := range shifts {
		if s.Date != date || s.Code != code || (start != "" && s.Start != start) {
			continue
		}
		if s.Clinician == clinician {
			return i, nil
		}
		other = true
	}

	if other {
		return -1, ErrNotOwner
	}
	return -1, ErrShiftNotFound
}

// SortByStart 按候选班次的开始时刻稳定排序，时刻相同的保持原来的相对顺序
func (e *Engine) SortByStart(candidates []domain.TradeCandidate) {
	slices.SortStableFunc(candidates, func(a, b domain.TradeCandidate) int {
		sa, okA := e.Span(a.Shift)
		sb, okB := e.Span(b.Shift)
		switch {
		case !okA && !okB:
			return 0
		case !okA:
			return 1
		case !okB:
			return -1
		}
		return sa.Start.Compare(sb.Start)
	})
}
