package roster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

const (
	DateLayout  = domain.DateLayout
	ClockLayout = domain.ClockLayout
)

// WallClock 是解码后的当地日期和时刻，全天事件的 Clock 为空
type WallClock struct {
	Date   string
	Clock  string
	AllDay bool
}

var (
	utcTokenRe      = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})?Z$`)
	floatingTokenRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})?$`)
	dateTokenRe     = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
)

// DecodeDateTime 解析日历中的日期时间字段，支持三种形式：
//   - 以 Z 结尾的 UTC 时间，转换到 loc 之后再取日期和时刻
//   - 含 T 但不含 Z 的浮动时间，按位置直接读取，不做时区转换
//   - 8 位纯日期，表示全天事件
//
// 其余形式一律返回 false，不会 panic
func DecodeDateTime(token string, loc *time.Location) (WallClock, bool) {
	token = strings.TrimSpace(token)

	switch {
	case strings.HasSuffix(token, "Z"):
		t, ok := positionalTime(utcTokenRe.FindStringSubmatch(token), time.UTC)
		if !ok {
			return WallClock{}, false
		}
		t = t.In(loc)
		return WallClock{Date: t.Format(DateLayout), Clock: t.Format(ClockLayout)}, true
	case strings.Contains(token, "T"):
		// 浮动时间本身就是当地时间，用 UTC 只是为了避免夏令时对字段的影响
		t, ok := positionalTime(floatingTokenRe.FindStringSubmatch(token), time.UTC)
		if !ok {
			return WallClock{}, false
		}
		return WallClock{Date: t.Format(DateLayout), Clock: t.Format(ClockLayout)}, true
	default:
		m := dateTokenRe.FindStringSubmatch(token)
		if m == nil {
			return WallClock{}, false
		}
		t, ok := positionalTime([]string{m[0], m[1], m[2], m[3], "00", "00", ""}, time.UTC)
		if !ok {
			return WallClock{}, false
		}
		return WallClock{Date: t.Format(DateLayout), AllDay: true}, true
	}
}

// positionalTime 把正则分组 (年, 月, 日, 时, 分, 可选秒) 组装成时间，并拒绝 2 月 30 日这类会被 time.Date 自动进位的值
func positionalTime(m []string, loc *time.Location) (time.Time, bool) {
	if len(m) < 6 {
		return time.Time{}, false
	}

	parts := make([]int, 6)
	for i := 1; i <= 6; i++ {
		if i == 6 && (len(m) < 7 || m[6] == "") {
			break
		}
		v, err := strconv.Atoi(m[i])
		if err != nil {
			return time.Time{}, false
		}
		parts[i-1] = v
	}

	year, month, day, hour, minute, second := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	if month < 1 || month > 12 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}

// Midnight 返回全天事件在 loc 中对应的零点
func (w WallClock) Midnight(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, w.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// padClock 把 "7", "30" 这样的时分补齐为 "07:30"，超出范围时返回 false
func padClock(hour, minute string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h < 0 || h > 23 {
		return "", false
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m < 0 || m > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}
