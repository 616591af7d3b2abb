package turnaround

import (
	"errors"
	"time"
)

// DefaultMinRest 两个班次之间至少需要的休息时间
const DefaultMinRest = 12 * time.Hour

var (
	ErrShiftNotFound     = errors.New("没有找到所选的班次")
	ErrNotOwner          = errors.New("所选班次不属于该医生")
	ErrUnresolvableShift = errors.New("所选班次缺少开始或结束时间")
)

// Span 班次实际的开始和结束时刻，跨夜班次的结束时刻已经落在第二天
type Span struct {
	Start time.Time
	End   time.Time
}

func (s Span) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// resolved 是预先计算好时刻的班次，ok 为 false 的班次不参与任何计算
type resolved struct {
	span Span
	ok   bool
}
