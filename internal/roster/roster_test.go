package roster

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

func winnipeg(t testing.TB) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Winnipeg")
	require.NoError(t, err)
	return loc
}
