package roster

import (
	"regexp"
	"strings"
)

const summarySeparator = " - "

// Summary 是从一行摘要文本中尽力猜出来的字段，任何字段都可能为空
type Summary struct {
	Code      string
	Clinician string
	Start     string // 摘要里出现 "H:MM-H:MM" 片段时才有值
	End       string
}

var (
	annotationRe = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	timeRangeRe  = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*-\s*(\d{1,2}):(\d{2})$`)
)

// DecodeSummary 解析 "<院区> - <科室> - <班次> - <开始>-<结束> - <医生> (<备注>)" 形式的摘要，
// 院区/科室前缀和括号备注都可以省略。该函数永远不会失败，格式不符时返回最可能的结果
func DecodeSummary(line string) Summary {
	line = strings.TrimSpace(line)
	segments := strings.Split(line, summarySeparator)

	var s Summary
	var clinician string

	switch {
	case len(segments) >= 5:
		s.Code = segments[2]
		clinician = segments[4]
	case len(segments) >= 2:
		s.Code = segments[len(segments)-2]
		clinician = segments[len(segments)-1]
	default:
		s.Code = line
	}

	s.Code = strings.TrimSpace(s.Code)
	s.Clinician = StripAnnotation(clinician)

	for _, segment := range segments {
		if start, end, ok := parseTimeRange(segment); ok {
			s.Start, s.End = start, end
			break
		}
	}

	return s
}

// StripAnnotation 去掉末尾的括号备注（例如 "(Day 2/2)"）并去除首尾空白
func StripAnnotation(field string) string {
	return strings.TrimSpace(annotationRe.ReplaceAllString(field, ""))
}

func parseTimeRange(segment string) (string, string, bool) {
	m := timeRangeRe.FindStringSubmatch(strings.TrimSpace(segment))
	if m == nil {
		return "", "", false
	}
	start, ok := padClock(m[1], m[2])
	if !ok {
		return "", "", false
	}
	end, ok := padClock(m[3], m[4])
	if !ok {
		return "", "", false
	}
	return start, end, true
}
