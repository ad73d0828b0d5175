package candidates

import (
	"strings"
	"testing"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// NormalizeID
// ==========================

func TestNormalizeID(t *testing.T) {
	long := "ABC123" + strings.Repeat("x", 10) + " " + strings.Repeat("y", 60)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "C-100", "C-100"},
		{"trims", "  42 ", "42"},
		{"pre-comma prefix", "ABC123,extra-garbage-data", "ABC123"},
		{"comma then spaces", "7 , 8", "7"},
		{"long leaked row", long, "ABC123" + strings.Repeat("x", 10)},
		{"long without token", strings.Repeat("-", 60), ""},
		{"exactly fifty", strings.Repeat("a", 50), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeID(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, ",")
		})
	}
}

func TestIsSentinelID(t *testing.T) {
	for _, id := range []string{"", "FALSE", "true", " False "} {
		assert.True(t, IsSentinelID(id), id)
	}
	assert.False(t, IsSentinelID("1"))
}

// ==========================
// RowToCandidate / CandidateToRow
// ==========================

func TestRowToCandidate_GarbageID(t *testing.T) {
	row := []string{"ABC123,extra-garbage-data", "Headline", "Sales,Tech", "", "", "C-SUITE", "CEO", "", "NY", "flexible", "", ""}

	c, err := RowToCandidate(row)
	require.NoError(t, err)
	assert.Equal(t, "ABC123", c.ID)
	assert.Equal(t, []string{"Sales", "Tech"}, c.Sectors)
	assert.Equal(t, []string{}, c.Tags)
	assert.Equal(t, "C-SUITE", c.Category)
	assert.Equal(t, "CEO", c.Title)
	assert.Equal(t, "NY", c.Location)
	assert.Equal(t, "flexible", c.RelocationPreference)
}

func TestRowToCandidate_ShortRowDefaults(t *testing.T) {
	c, err := RowToCandidate([]string{"5", "Head of Ops"})
	require.NoError(t, err)
	assert.Equal(t, "5", c.ID)
	assert.NotNil(t, c.Sectors)
	assert.NotNil(t, c.Tags)
	assert.Empty(t, c.ResumeText)
}

func TestRowToCandidate_RejectsSentinel(t *testing.T) {
	_, err := RowToCandidate([]string{"FALSE", "x"})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMapping))

	_, err = RowToCandidate(nil)
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	cases := []models.Candidate{
		{
			ID:                   "C-7",
			Headline:             "VP Engineering",
			Sectors:              []string{"Fintech", "Payments"},
			Tags:                 []string{"leadership"},
			ResumeURL:            "https://files.example.com/c7.pdf",
			ResumeText:           "Led teams of 80.",
			Category:             "Executive",
			Title:                "VP",
			Summary:              "Scaled platform",
			Location:             "Berlin",
			RelocationPreference: "open",
			NotableEmployers:     "Acme, Globex",
		},
		{
			ID:      "C-8,shadow",
			Sectors: []string{},
			Tags:    []string{},
		},
		{
			ID:         " C-9 ",
			Headline:   "  Chief of Staff ",
			Summary:    "Line one\n  indented line\n",
			ResumeText: " leading and trailing ",
			Location:   "Lisbon ",
			Sectors:    []string{"Retail"},
			Tags:       []string{},
		},
	}

	for _, c := range cases {
		got, err := RowToCandidate(CandidateToRow(c))
		require.NoError(t, err)

		want := c
		want.ID = NormalizeID(c.ID)
		assert.Equal(t, want, got)
	}
}

func TestCandidateToRow_ColumnOrder(t *testing.T) {
	row := CandidateToRow(models.Candidate{
		ID: "1", Headline: "h", Sectors: []string{"a", "b"}, Tags: []string{"t"},
		ResumeURL: "u", Category: "cat", Title: "ti", Summary: "s", Location: "l",
		RelocationPreference: "r", NotableEmployers: "n", ResumeText: "rt",
	})
	assert.Equal(t, []string{"1", "h", "a, b", "t", "u", "cat", "ti", "s", "l", "r", "n", "rt"}, row)
}

// ==========================
// MapRows
// ==========================

func TestMapRows_SkipsMalformed(t *testing.T) {
	rows := [][]string{
		{"1", "A"},
		{"", "no id"},
		{"3", "C"},
		{"TRUE"},
	}
	got, errs := MapRows(rows)
	assert.Len(t, got, 2)
	assert.Len(t, errs, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}
