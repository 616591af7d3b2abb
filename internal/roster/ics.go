package roster

import (
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

type icsProperty struct {
	value  string
	params map[string]string
	set    bool
}

type icsEvent struct {
	start    icsProperty
	end      icsProperty
	summary  icsProperty
	location icsProperty
}

var icsTextReplacer = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

// ParseICS 把日历订阅文本解析成班次。缺少 DTSTART 或 SUMMARY 的事件只会被跳过，不影响其他事件
func (p *Parser) ParseICS(text string) Report {
	report := newReport()

	var block []string
	inEvent := false

	for _, line := range unfoldLines(text) {
		switch {
		case strings.EqualFold(strings.TrimSpace(line), "BEGIN:VEVENT"):
			inEvent = true
			block = block[:0]
		case strings.EqualFold(strings.TrimSpace(line), "END:VEVENT"):
			if !inEvent {
				continue
			}
			inEvent = false

			shift, ok := p.decodeEvent(block)
			if !ok {
				report.Skipped++
				continue
			}
			report.Shifts = append(report.Shifts, shift)
		case inEvent:
			block = append(block, line)
		}
	}

	if report.Skipped > 0 {
		p.logger.Debug("日历中部分事件无法解析，已跳过", "skipped", report.Skipped, "parsed", len(report.Shifts))
	}

	return report
}

// unfoldLines 统一换行符，去掉空行，并把以空格或制表符开头的续行拼接回上一行
func unfoldLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := make([]string, 0)
	for _, raw := range strings.Split(text, "\n") {
		if (strings.HasPrefix(raw, " ") || strings.HasPrefix(raw, "\t")) && len(lines) > 0 && strings.TrimSpace(raw) != "" {
			lines[len(lines)-1] += raw[1:]
			continue
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, strings.TrimRight(raw, " \t"))
	}

	return lines
}

func parseProperty(line string) (string, icsProperty, bool) {
	// 只按第一个冒号切分，值里面可能还有冒号
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", icsProperty{}, false
	}

	name, value := line[:idx], line[idx+1:]
	prop := icsProperty{value: value, params: map[string]string{}, set: true}

	parts := strings.Split(name, ";")
	for _, param := range parts[1:] {
		k, v, found := strings.Cut(param, "=")
		if !found {
			continue
		}
		prop.params[strings.ToUpper(strings.TrimSpace(k))] = strings.Trim(strings.TrimSpace(v), `"`)
	}

	return strings.ToUpper(strings.TrimSpace(name)), prop, true
}

func (p *Parser) decodeEvent(lines []string) (domain.Shift, bool) {
	var ev icsEvent

	for _, line := range lines {
		name, prop, ok := parseProperty(line)
		if !ok {
			continue
		}

		// 按前缀匹配，这样 DTSTART;TZID=... 这类带参数的写法也能识别
		switch {
		case strings.HasPrefix(name, "DTSTART"):
			ev.start = prop
		case strings.HasPrefix(name, "DTEND"):
			ev.end = prop
		case strings.HasPrefix(name, "SUMMARY"):
			ev.summary = prop
		case strings.HasPrefix(name, "LOCATION"):
			ev.location = prop
		}
	}

	summaryText := strings.TrimSpace(icsTextReplacer.Replace(ev.summary.value))
	if !ev.start.set || !ev.summary.set || summaryText == "" {
		return domain.Shift{}, false
	}

	start, ok := p.decodeProperty(ev.start)
	if !ok {
		return domain.Shift{}, false
	}

	summary := DecodeSummary(summaryText)

	startClock := start.Clock
	if startClock == "" {
		startClock = summary.Start
	}

	endClock := ""
	if ev.end.set {
		if end, ok := p.decodeProperty(ev.end); ok {
			endClock = end.Clock
		}
	}
	if endClock == "" {
		endClock = summary.End
	}

	return buildShift(fields{
		date:         start.Date,
		code:         summary.Code,
		start:        startClock,
		end:          endClock,
		clinicianRaw: summary.Clinician,
		location:     icsTextReplacer.Replace(ev.location.value),
		raw:          summaryText,
	}), true
}

// decodeProperty 在 DecodeDateTime 的基础上处理 TZID 参数：
// 浮动时间带有一个可加载且不同于院区时区的 TZID 时，先按该时区理解再转换到院区时区
func (p *Parser) decodeProperty(prop icsProperty) (WallClock, bool) {
	wc, ok := DecodeDateTime(prop.value, p.loc)
	if !ok || wc.AllDay || strings.HasSuffix(strings.TrimSpace(prop.value), "Z") {
		return wc, ok
	}

	tzid := prop.params["TZID"]
	if tzid == "" {
		return wc, true
	}

	src, err := time.LoadLocation(tzid)
	if err != nil || src.String() == p.loc.String() {
		return wc, true
	}

	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, wc.Date+" "+wc.Clock, src)
	if err != nil {
		return wc, true
	}
	t = t.In(p.loc)

	return WallClock{Date: t.Format(DateLayout), Clock: t.Format(ClockLayout)}, true
}
