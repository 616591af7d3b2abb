package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

const MailTypeTradeInquiry = "trade_inquiry"

type TradeInquiryMailData struct {
	FromClinician string `json:"fromClinician"`
	ToClinician   string `json:"toClinician"`
	MyShift       Shift  `json:"myShift"`
	TheirShift    Shift  `json:"theirShift"`
	Note          string `json:"note"`
	ReplyTo       string `json:"replyTo"`
}
