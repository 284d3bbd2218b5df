package cleaning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CropVol/internal/domain/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rawTable() *models.Table {
	return &models.Table{
		DateColumn: "Date",
		Dates: []time.Time{
			day(2024, time.November, 1),
			day(2012, time.February, 1),
			day(2011, time.December, 1),
			day(2024, time.October, 31).Add(15 * time.Hour),
			day(2018, time.June, 1),
		},
		Columns: []string{"Indore", "Bhopal", "Dewas"},
		Values: map[string][]float64{
			"Indore": {1, 2, 3, 4, 5},
			"Bhopal": {10, 20, 30, 40, 50},
			"Dewas":  {100, 200, 300, 400, 500},
		},
	}
}

func TestClean_WhitelistAndWindow(t *testing.T) {
	out, missing := Clean(rawTable(), []string{"Dewas", "Indore", "Ujjain"}, DefaultWindow)

	assert.Equal(t, []string{"Dewas", "Indore"}, out.Columns)
	assert.Equal(t, []string{"Ujjain"}, missing)
	assert.False(t, out.Has("Bhopal"), "non-whitelisted region must never survive cleaning")

	require.Equal(t, []time.Time{
		day(2012, time.February, 1),
		day(2018, time.June, 1),
		day(2024, time.October, 31),
	}, out.Dates)
	assert.Equal(t, []float64{2, 5, 4}, out.Values["Indore"])
	assert.Equal(t, []float64{200, 500, 400}, out.Values["Dewas"])
}

func TestClean_OutputWithinWindowAndSubsetOfWhitelist(t *testing.T) {
	whitelist := []string{"Indore", "Dewas"}
	out, _ := Clean(rawTable(), whitelist, DefaultWindow)

	for _, d := range out.Dates {
		assert.False(t, d.Before(DefaultWindow.Start), "date %v before window", d)
		assert.False(t, d.After(DefaultWindow.End), "date %v after window", d)
	}
	for _, c := range out.Columns {
		assert.Contains(t, whitelist, c)
	}
	for i := 1; i < len(out.Dates); i++ {
		assert.True(t, out.Dates[i-1].Before(out.Dates[i]))
	}
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	in := rawTable()
	_, _ = Clean(in, []string{"Indore"}, DefaultWindow)

	assert.Equal(t, rawTable(), in)
}

func TestClean_OpenWindowKeepsEveryRow(t *testing.T) {
	out, missing := Clean(rawTable(), []string{"Bhopal"}, models.DateWindow{})

	assert.Empty(t, missing)
	assert.Len(t, out.Dates, 5)
	assert.Equal(t, []float64{30, 20, 50, 40, 10}, out.Values["Bhopal"])
}

func TestClean_DuplicateWhitelistEntries(t *testing.T) {
	out, _ := Clean(rawTable(), []string{"Indore", "Indore"}, DefaultWindow)
	assert.Equal(t, []string{"Indore"}, out.Columns)
}
