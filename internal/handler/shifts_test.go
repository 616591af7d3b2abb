package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/ed-roster/backend/internal/feed"
)

const testFeed = "BEGIN:VCALENDAR\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20251117T130000Z\r\n" +
	"DTEND:20251117T210000Z\r\n" +
	"SUMMARY:SBH - ED - A - 07:00-15:00 - X\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20251117T210000Z\r\n" +
	"DTEND:20251118T050000Z\r\n" +
	"SUMMARY:SBH - ED - B - 15:00-23:00 - Y\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"DTSTART:20251118T050000Z\r\n" +
	"DTEND:20251118T130000Z\r\n" +
	"SUMMARY:SBH - ED - C - 23:00-07:00 - Z\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func decodeShifts(t *testing.T, data json.RawMessage) []domain.Shift {
	t.Helper()
	var shifts []domain.Shift
	require.NoError(t, json.Unmarshal(data, &shifts))
	return shifts
}

func TestGetFeedShifts(t *testing.T) {
	env := newTestEnv(t, fakeFeed{text: testFeed})

	req := httptest.NewRequest(http.MethodGet, "/shifts/feed", nil)
	req.AddCookie(env.signIn(t))
	_, body := env.serve(t, req)

	require.True(t, body.Success, body.Message)
	shifts := decodeShifts(t, body.Data)
	require.Len(t, shifts, 3)
	assert.Equal(t, domain.Shift{
		Date:      "2025-11-17",
		Code:      "C",
		Start:     "23:00",
		End:       "07:00",
		Clinician: "Z",
		Raw:       "SBH - ED - C - 23:00-07:00 - Z",
	}, shifts[2])
}

func TestGetFeedShifts_Failures(t *testing.T) {
	tests := []struct {
		name     string
		feed     fakeFeed
		code     string
		contains string
	}{
		{
			name: "not configured",
			feed: fakeFeed{err: feed.ErrFeedURLNotConfigured},
			code: CodeFeedNotConfigured,
		},
		{
			name:     "upstream status",
			feed:     fakeFeed{err: &feed.RetrievalError{URL: "https://cal.example.org", StatusCode: http.StatusServiceUnavailable}},
			code:     CodeFeedUnavailable,
			contains: "503",
		},
		{
			name: "nothing parsed",
			feed: fakeFeed{text: "<html>maintenance</html>"},
			code: CodeNoShiftsParsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.feed)

			req := httptest.NewRequest(http.MethodGet, "/shifts/feed", nil)
			req.AddCookie(env.signIn(t))
			_, body := env.serve(t, req)

			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Message, tt.contains)
		})
	}
}

func TestGetFeedShifts_NothingParsedReturnsEmptyList(t *testing.T) {
	env := newTestEnv(t, fakeFeed{text: "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"})

	req := httptest.NewRequest(http.MethodGet, "/shifts/feed", nil)
	req.AddCookie(env.signIn(t))
	_, body := env.serve(t, req)

	assert.Equal(t, CodeNoShiftsParsed, body.Code)
	assert.JSONEq(t, "[]", string(body.Data))
}

func uploadRequest(t *testing.T, fields map[string]string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "roster.xlsx")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/shifts/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func workbook(t *testing.T, cells map[string]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue(sheet, axis, v))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestUploadShifts(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	file := workbook(t, map[string]string{
		"A1": "Mon, Nov 17",
		"A4": "R22 - 22:00-02:00",
		"A5": "Klassen",
		"B4": "R1 - 7:00-15:00",
	})

	req := uploadRequest(t, map[string]string{"year": "2025"}, file)
	req.AddCookie(cookie)
	_, body := env.serve(t, req)

	require.True(t, body.Success, body.Message)
	shifts := decodeShifts(t, body.Data)
	require.Len(t, shifts, 1)
	assert.Equal(t, "2025-11-17", shifts[0].Date)
	assert.Equal(t, "R22", shifts[0].Code)
	assert.Equal(t, "22:00", shifts[0].Start)
	assert.Equal(t, "02:00", shifts[0].End)
	assert.Equal(t, "Klassen", shifts[0].Clinician)
}

func TestUploadShifts_Failures(t *testing.T) {
	env := newTestEnv(t, fakeFeed{})
	cookie := env.signIn(t)

	tests := []struct {
		name   string
		fields map[string]string
		file   []byte
		code   string
	}{
		{name: "missing file", code: CodeInvalidUpload},
		{name: "not a workbook", file: []byte("date,shift\n"), code: CodeInvalidWorkbook},
		{name: "no shifts", file: workbook(t, map[string]string{"A1": "Roster"}), code: CodeNoShiftsParsed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := uploadRequest(t, tt.fields, tt.file)
			req.AddCookie(cookie)
			_, body := env.serve(t, req)

			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	req := uploadRequest(t, map[string]string{"year": "twenty"}, workbook(t, map[string]string{"A1": "Mon, Nov 17"}))
	req.AddCookie(cookie)
	_, body := env.serve(t, req)
	assert.False(t, body.Success)
	assert.Empty(t, body.Code)
}
