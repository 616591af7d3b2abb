package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/feed"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/roster"
)

func (h *Handler) GetFeedShifts(w http.ResponseWriter, r *http.Request) {
	shifts, ok := h.loadFeedShifts(w, r)
	if !ok {
		return
	}

	h.successResponse(w, r, fmt.Sprintf("parsed %d shifts", len(shifts)), shifts)
}

// loadFeedShifts 获取并解析排班日历。失败时已经写好了响应，调用方直接返回即可
func (h *Handler) loadFeedShifts(w http.ResponseWriter, r *http.Request) ([]domain.Shift, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Feed.FetchTimeout)*time.Second)
	defer cancel()

	text, err := h.feed.Fetch(ctx)
	if err != nil {
		h.feedError(w, r, err)
		return nil, false
	}

	report := h.parser.ParseICS(text)
	if report.NoShifts() {
		slog.Warn("排班日历中没有解析出任何班次", "request_id", requestID(r), "skipped", report.Skipped, "bytes", len(text))
		h.errorResponseWithCode(w, r, CodeNoShiftsParsed, "the schedule was fetched but no shifts could be read from it", []domain.Shift{})
		return nil, false
	}

	return report.Shifts, true
}

func (h *Handler) feedError(w http.ResponseWriter, r *http.Request, err error) {
	var retrievalErr *feed.RetrievalError

	switch {
	case errors.Is(err, feed.ErrFeedURLNotConfigured):
		slog.Error("没有配置排班日历的订阅地址", "request_id", requestID(r))
		h.errorResponseWithCode(w, r, CodeFeedNotConfigured, "the schedule feed is not configured", nil)
	case errors.As(err, &retrievalErr):
		slog.Warn("获取排班日历失败", "request_id", requestID(r), "status", retrievalErr.StatusCode, "error", retrievalErr.Err)
		msg := "could not fetch the schedule"
		if retrievalErr.StatusCode != 0 {
			msg = fmt.Sprintf("could not fetch the schedule (upstream status %d)", retrievalErr.StatusCode)
		}
		h.errorResponseWithCode(w, r, CodeFeedUnavailable, msg, nil)
	default:
		h.internalServerError(w, r, err)
	}
}

// UploadShifts 解析上传的 xlsx 排班表，可以通过 year 参数指定表头中没有年份时使用的年份
func (h *Handler) UploadShifts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Upload.MaxBytes)

	if err := r.ParseMultipartForm(h.config.Upload.MaxBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			h.errorResponseWithCode(w, r, CodeInvalidUpload, fmt.Sprintf("the file is larger than %d bytes", maxBytesErr.Limit), nil)
		default:
			h.errorResponseWithCode(w, r, CodeInvalidUpload, "the upload must be a multipart form", nil)
		}
		return
	}

	opts := []roster.Option{}
	if year := r.FormValue("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil || y < 1900 || y > 9999 {
			h.errorResponse(w, r, "year must be a four-digit number")
			return
		}
		opts = append(opts, roster.WithDefaultYear(y))
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile):
			h.errorResponseWithCode(w, r, CodeInvalidUpload, "file is required", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}
	defer file.Close()

	grid, err := roster.ReadWorkbook(file)
	if err != nil {
		slog.Warn("无法读取上传的工作簿", "request_id", requestID(r), "error", err)
		h.errorResponseWithCode(w, r, CodeInvalidWorkbook, "the file is not a readable xlsx workbook", nil)
		return
	}

	report := roster.NewParser(h.location, opts...).ParseGrid(grid)
	if report.NoShifts() {
		slog.Warn("上传的排班表中没有解析出任何班次", "request_id", requestID(r), "skipped", report.Skipped, "rows", len(grid))
		h.errorResponseWithCode(w, r, CodeNoShiftsParsed, "no shifts could be read from the uploaded schedule", []domain.Shift{})
		return
	}

	h.successResponse(w, r, fmt.Sprintf("parsed %d shifts", len(report.Shifts)), report.Shifts)
}
