package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/turnaround"
)

type tradeAnalysis struct {
	Shift        domain.Shift            `json:"shift"`
	MinRestHours float64                 `json:"minRestHours"`
	Candidates   []domain.TradeCandidate `json:"candidates"`
}

// AnalyzeTrades 请求中没有带上班次列表时，从排班日历获取
func (h *Handler) AnalyzeTrades(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Clinician string         `json:"clinician" validate:"required"`
		Date      string         `json:"date" validate:"required,datetime=2006-01-02"`
		ShiftName string         `json:"shiftName" validate:"required"`
		StartTime string         `json:"startTime" validate:"omitempty,datetime=15:04"`
		Shifts    []domain.Shift `json:"shifts" validate:"omitempty,dive"`
		Sort      string         `json:"sort" validate:"omitempty,oneof=original start"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shifts := req.Shifts
	switch {
	case shifts == nil:
		var ok bool
		if shifts, ok = h.loadFeedShifts(w, r); !ok {
			return
		}
	case len(shifts) == 0:
		h.errorResponseWithCode(w, r, CodeNoShiftsParsed, "no shifts were provided", []domain.Shift{})
		return
	}

	idx, err := turnaround.FindShift(shifts, req.Clinician, req.Date, req.ShiftName, req.StartTime)
	if err != nil {
		h.tradeError(w, r, err)
		return
	}

	candidates, err := h.engine.Analyze(shifts, req.Clinician, idx)
	if err != nil {
		h.tradeError(w, r, err)
		return
	}

	if req.Sort == "start" {
		h.engine.SortByStart(candidates)
	}

	h.attachContacts(r, candidates)

	msg := fmt.Sprintf("found %d candidates", len(candidates))
	if len(candidates) == 0 {
		msg = "no other shifts on this date"
	}

	h.successResponse(w, r, msg, tradeAnalysis{
		Shift:        shifts[idx],
		MinRestHours: h.engine.MinRest().Hours(),
		Candidates:   candidates,
	})
}

func (h *Handler) tradeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, turnaround.ErrShiftNotFound):
		h.errorResponseWithCode(w, r, CodeShiftNotFound, "the selected shift was not found in the schedule", nil)
	case errors.Is(err, turnaround.ErrNotOwner):
		h.errorResponseWithCode(w, r, CodeShiftNotOwned, "the selected shift belongs to another clinician", nil)
	case errors.Is(err, turnaround.ErrUnresolvableShift):
		h.errorResponseWithCode(w, r, CodeShiftWithoutTimes, "the selected shift has no start or end time", nil)
	default:
		h.internalServerError(w, r, err)
	}
}

// attachContacts 联系方式只是锦上添花，查询失败时记录日志后照常返回分析结果
func (h *Handler) attachContacts(r *http.Request, candidates []domain.TradeCandidate) {
	names := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.Shift.HasClinician() && !seen[c.Shift.Clinician] {
			seen[c.Shift.Clinician] = true
			names = append(names, c.Shift.Clinician)
		}
	}

	contacts, err := h.repository.GetContactsByNames(names)
	if err != nil {
		slog.Warn("无法获取候选医生的联系方式", "request_id", requestID(r), "error", err)
		return
	}

	for i := range candidates {
		candidates[i].Contact = contacts[candidates[i].Shift.Clinician]
	}
}

func (h *Handler) SendTradeInquiry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromClinician string       `json:"fromClinician" validate:"required"`
		ToClinician   string       `json:"toClinician" validate:"required,nefield=FromClinician"`
		MyShift       domain.Shift `json:"myShift" validate:"required"`
		TheirShift    domain.Shift `json:"theirShift" validate:"required"`
		Note          string       `json:"note" validate:"max=1000"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	to, err := h.repository.GetContactByName(req.ToClinician)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponseWithCode(w, r, CodeContactNotFound, fmt.Sprintf("no contact details on file for %s", req.ToClinician), nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	if to.Email == "" {
		h.errorResponseWithCode(w, r, CodeContactNoEmail, fmt.Sprintf("%s has no email address on file", req.ToClinician), nil)
		return
	}

	// 发起人的邮箱作为回复地址，没有登记也不影响发送
	replyTo := ""
	from, err := h.repository.GetContactByName(req.FromClinician)
	switch {
	case err == nil:
		replyTo = from.Email
	case !errors.Is(err, sql.ErrNoRows):
		h.internalServerError(w, r, err)
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailTypeTradeInquiry,
		To:   to.Email,
		Data: domain.TradeInquiryMailData{
			FromClinician: req.FromClinician,
			ToClinician:   req.ToClinician,
			MyShift:       req.MyShift,
			TheirShift:    req.TheirShift,
			Note:          req.Note,
			ReplyTo:       replyTo,
		},
	}

	if err := h.publishMail(r.Context(), mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, fmt.Sprintf("trade inquiry sent to %s", req.ToClinician), nil)
}
