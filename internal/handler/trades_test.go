package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
)

func tradeShifts() []domain.Shift {
	return []domain.Shift{
		{Date: "2025-11-16", Code: "N", Start: "23:00", End: "07:00", Clinician: "X"},
		{Date: "2025-11-17", Code: "C", Start: "23:00", End: "07:00", Clinician: "Z"},
		{Date: "2025-11-17", Code: "A", Start: "07:00", End: "15:00", Clinician: "X"},
		{Date: "2025-11-17", Code: "B", Start: "15:00", End: "23:00", Clinician: "Y"},
		{Date: "2025-11-17", Code: "Open", Start: "11:00", End: "19:00"},
	}
}

func contactRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"name", "email", "phone", "preferred", "updated_at", "version"})
}

func decodeAnalysis(t *testing.T, data json.RawMessage) tradeAnalysis {
	t.Helper()
	var analysis tradeAnalysis
	require.NoError(t, json.Unmarshal(data, &analysis))
	return analysis
}

func TestAnalyzeTrades(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	env.mock.ExpectQuery(`FROM contacts WHERE name = ANY\(\$1\)`).
		WithArgs([]string{"Z", "Y"}).
		WillReturnRows(contactRows().AddRow("Z", "z@example.org", "", "email", time.Now(), 1))

	req := jsonRequest(t, http.MethodPost, "/trades/analyze", map[string]any{
		"clinician": "X",
		"date":      "2025-11-17",
		"shiftName": "A",
		"shifts":    tradeShifts(),
	})
	req.AddCookie(cookie)
	_, body := env.serve(t, req)

	require.True(t, body.Success, body.Message)
	analysis := decodeAnalysis(t, body.Data)
	assert.Equal(t, "A", analysis.Shift.Code)
	assert.Equal(t, float64(12), analysis.MinRestHours)
	require.Len(t, analysis.Candidates, 3)

	c, b, open := analysis.Candidates[0], analysis.Candidates[1], analysis.Candidates[2]
	assert.Equal(t, "C", c.Shift.Code)
	assert.False(t, c.MyShort)
	require.NotNil(t, c.Contact)
	assert.Equal(t, "z@example.org", c.Contact.Email)

	assert.Equal(t, "B", b.Shift.Code)
	assert.True(t, b.MyShort)
	assert.True(t, b.HasShort)
	assert.Nil(t, b.Contact)

	assert.Equal(t, "Open", open.Shift.Code)
	assert.True(t, open.MyShort)
	assert.Nil(t, open.TheirRestMinutes)

	require.NoError(t, env.mock.ExpectationsWereMet())
}

func TestAnalyzeTrades_SortByStart(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	env.mock.ExpectQuery(`FROM contacts WHERE name = ANY\(\$1\)`).
		WillReturnRows(contactRows())

	req := jsonRequest(t, http.MethodPost, "/trades/analyze", map[string]any{
		"clinician": "X",
		"date":      "2025-11-17",
		"shiftName": "A",
		"startTime": "07:00",
		"shifts":    tradeShifts(),
		"sort":      "start",
	})
	req.AddCookie(cookie)
	_, body := env.serve(t, req)

	require.True(t, body.Success, body.Message)
	analysis := decodeAnalysis(t, body.Data)

	codes := []string{}
	for _, c := range analysis.Candidates {
		codes = append(codes, c.Shift.Code)
	}
	assert.Equal(t, []string{"Open", "B", "C"}, codes)
}

func TestAnalyzeTrades_FromFeed(t *testing.T) {
	env := newTestEnv(t, fakeFeed{text: testFeed})
	cookie := env.signIn(t)

	env.mock.ExpectQuery(`FROM contacts WHERE name = ANY\(\$1\)`).
		WillReturnError(errors.New("connection refused"))

	req := jsonRequest(t, http.MethodPost, "/trades/analyze", map[string]any{
		"clinician": "X",
		"date":      "2025-11-17",
		"shiftName": "A",
	})
	req.AddCookie(cookie)
	_, body := env.serve(t, req)

	// 联系方式查询失败不影响分析结果
	require.True(t, body.Success, body.Message)
	analysis := decodeAnalysis(t, body.Data)
	require.Len(t, analysis.Candidates, 2)
	for _, c := range analysis.Candidates {
		assert.Nil(t, c.Contact)
		assert.False(t, c.HasShort)
	}
}

func TestAnalyzeTrades_Errors(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	tests := []struct {
		name string
		req  map[string]any
		code string
	}{
		{
			name: "not found",
			req:  map[string]any{"clinician": "X", "date": "2025-11-18", "shiftName": "A", "shifts": tradeShifts()},
			code: CodeShiftNotFound,
		},
		{
			name: "owned by someone else",
			req:  map[string]any{"clinician": "Y", "date": "2025-11-17", "shiftName": "A", "shifts": tradeShifts()},
			code: CodeShiftNotOwned,
		},
		{
			name: "empty shift list",
			req:  map[string]any{"clinician": "X", "date": "2025-11-17", "shiftName": "A", "shifts": []domain.Shift{}},
			code: CodeNoShiftsParsed,
		},
		{
			name: "invalid date",
			req:  map[string]any{"clinician": "X", "date": "17/11/2025", "shiftName": "A", "shifts": tradeShifts()},
		},
		{
			name: "invalid sort",
			req:  map[string]any{"clinician": "X", "date": "2025-11-17", "shiftName": "A", "sort": "name", "shifts": tradeShifts()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(t, http.MethodPost, "/trades/analyze", tt.req)
			req.AddCookie(cookie)
			_, body := env.serve(t, req)

			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}

	require.NoError(t, env.mock.ExpectationsWereMet())
}

func inquiryRequest() map[string]any {
	shifts := tradeShifts()
	return map[string]any{
		"fromClinician": "X",
		"toClinician":   "Z",
		"myShift":       shifts[2],
		"theirShift":    shifts[1],
		"note":          "Happy to swap if it works for you",
	}
}

func TestSendTradeInquiry(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	env.mock.ExpectQuery(`FROM contacts WHERE name = \$1`).
		WithArgs("Z").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "preferred", "updated_at", "version"}).
			AddRow("z@example.org", "", "email", time.Now(), 1))
	env.mock.ExpectQuery(`FROM contacts WHERE name = \$1`).
		WithArgs("X").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "preferred", "updated_at", "version"}))

	req := jsonRequest(t, http.MethodPost, "/trades/inquiries", inquiryRequest())
	req.AddCookie(cookie)
	_, body := env.serve(t, req)

	require.True(t, body.Success, body.Message)
	require.NoError(t, env.mock.ExpectationsWereMet())

	require.Len(t, env.publisher.messages, 1)
	assert.Equal(t, mailQueue, env.publisher.keys[0])

	var msg struct {
		Type string                      `json:"type"`
		To   string                      `json:"to"`
		Data domain.TradeInquiryMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.publisher.messages[0].Body, &msg))
	assert.Equal(t, domain.MailTypeTradeInquiry, msg.Type)
	assert.Equal(t, "z@example.org", msg.To)
	assert.Equal(t, "C", msg.Data.TheirShift.Code)
	assert.Equal(t, "A", msg.Data.MyShift.Code)
	assert.Empty(t, msg.Data.ReplyTo)
}

func TestSendTradeInquiry_Errors(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	env.mock.ExpectQuery(`FROM contacts WHERE name = \$1`).
		WithArgs("Z").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "preferred", "updated_at", "version"}))
	env.mock.ExpectQuery(`FROM contacts WHERE name = \$1`).
		WithArgs("Z").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone", "preferred", "updated_at", "version"}).
			AddRow("", "204-555-0199", "text", time.Now(), 1))

	req := jsonRequest(t, http.MethodPost, "/trades/inquiries", inquiryRequest())
	req.AddCookie(cookie)
	_, body := env.serve(t, req)
	assert.Equal(t, CodeContactNotFound, body.Code)

	req = jsonRequest(t, http.MethodPost, "/trades/inquiries", inquiryRequest())
	req.AddCookie(cookie)
	_, body = env.serve(t, req)
	assert.Equal(t, CodeContactNoEmail, body.Code)

	same := inquiryRequest()
	same["toClinician"] = "X"
	req = jsonRequest(t, http.MethodPost, "/trades/inquiries", same)
	req.AddCookie(cookie)
	_, body = env.serve(t, req)
	assert.False(t, body.Success)

	assert.Empty(t, env.publisher.messages)
	require.NoError(t, env.mock.ExpectationsWereMet())
}
