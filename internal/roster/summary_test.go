package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSummary(t *testing.T) {
	tests := []struct {
		line string
		want Summary
	}{
		{
			line: "SBH - ED - R-PM2 - 15:30-00:30 - Peters (Day 2/2)",
			want: Summary{Code: "R-PM2", Clinician: "Peters", Start: "15:30", End: "00:30"},
		},
		{
			line: "SBH - ED - Surge-AM - 08:00-17:00 - Klassen",
			want: Summary{Code: "Surge-AM", Clinician: "Klassen", Start: "08:00", End: "17:00"},
		},
		{
			line: "  SBH - ED - N1 - 23:00-07:00 - Nguyen (Day 1/3) - extra  ",
			want: Summary{Code: "N1", Clinician: "Nguyen", Start: "23:00", End: "07:00"},
		},
		{
			line: "R-AM1 - Singh (orientation)",
			want: Summary{Code: "R-AM1", Clinician: "Singh"},
		},
		{
			line: "R-AM1 - 7:00-15:00 - Singh",
			want: Summary{Code: "7:00-15:00", Clinician: "Singh", Start: "07:00", End: "15:00"},
		},
		{
			line: "Department meeting",
			want: Summary{Code: "Department meeting"},
		},
		{
			line: "",
			want: Summary{},
		},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DecodeSummary(tt.line), "line %q", tt.line)
	}
}

func TestDecodeSummary_NeverPanics(t *testing.T) {
	lines := []string{" - ", " -  - ", "(((", "a - (b)", " - - - - - - - ", "x - 99:99-00:00 - y"}
	for _, line := range lines {
		assert.NotPanics(t, func() { DecodeSummary(line) }, line)
	}

	s := DecodeSummary("x - 99:99-00:00 - y")
	assert.Empty(t, s.Start)
	assert.Equal(t, "y", s.Clinician)
}

func TestStripAnnotation(t *testing.T) {
	assert.Equal(t, "Peters", StripAnnotation(" Peters (Day 2/2) "))
	assert.Equal(t, "Peters (R2) Lee", StripAnnotation("Peters (R2) Lee"))
	assert.Equal(t, "", StripAnnotation("(vacant)"))
}
