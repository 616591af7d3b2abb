package domain

import "time"

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Shift 是两种排班来源（日历订阅和表格导出）统一之后的班次记录，构造之后不再修改
type Shift struct {
	Date      string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Code      string `json:"shiftName" yaml:"shiftName" validate:"required"`
	Start     string `json:"startTime" yaml:"startTime" validate:"omitempty,datetime=15:04"`
	End       string `json:"endTime" yaml:"endTime" validate:"omitempty,datetime=15:04"`
	Clinician string `json:"doctor" yaml:"doctor"` // 为空表示该班次尚未分配医生
	Location  string `json:"location,omitempty" yaml:"location,omitempty"`
	Raw       string `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// IsOvernight 结束时刻不晚于开始时刻时，该班次跨越到第二天。按钟点比较，"9:00" 与 "09:00" 等价
func (s Shift) IsOvernight() bool {
	start, err := time.Parse(ClockLayout, s.Start)
	if err != nil {
		return false
	}
	end, err := time.Parse(ClockLayout, s.End)
	if err != nil {
		return false
	}
	return !end.After(start)
}

func (s Shift) HasClinician() bool {
	return s.Clinician != ""
}
