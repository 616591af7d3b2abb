package domain

// TradeCandidate 同一天内可以交换的另一个班次，以及交换之后双方的休息间隔是否过短
type TradeCandidate struct {
	Shift            Shift    `json:"shift" yaml:"shift"`
	MyShort          bool     `json:"myShort" yaml:"myShort"`
	TheirShort       bool     `json:"theirShort" yaml:"theirShort"`
	HasShort         bool     `json:"hasShort" yaml:"hasShort"`
	MyRestMinutes    *int64   `json:"myRestMinutes" yaml:"myRestMinutes"`       // 没有前一个班次时为 nil
	TheirRestMinutes *int64   `json:"theirRestMinutes" yaml:"theirRestMinutes"` // 同上
	Contact          *Contact `json:"contact,omitempty" yaml:"contact,omitempty"`
}
