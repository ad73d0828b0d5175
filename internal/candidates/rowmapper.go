package candidates

import (
	"fmt"
	"regexp"
	"strings"

	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/models"
)

// Spreadsheet column positions. The sheet has no header lookup; order is
// the contract.
const (
	colID = iota
	colHeadline
	colSectors
	colTags
	colResumeURL
	colCategory
	colTitle
	colSummary
	colLocation
	colRelocation
	colNotableEmployers
	colResumeText

	columnCount
)

const maxIDLength = 50

var leadingToken = regexp.MustCompile(`^[A-Za-z0-9]+`)

// NormalizeID keeps the part before the first comma. Anything still longer
// than 50 characters is a leaked row, so only its leading alphanumeric token
// is kept.
func NormalizeID(raw string) string {
	id := raw
	if i := strings.IndexByte(id, ','); i >= 0 {
		id = id[:i]
	}
	id = strings.TrimSpace(id)
	if len(id) > maxIDLength {
		return leadingToken.FindString(id)
	}
	return id
}

// IsSentinelID reports ids that are spreadsheet artifacts, such as checkbox
// columns exported as booleans.
func IsSentinelID(id string) bool {
	switch strings.ToUpper(strings.TrimSpace(id)) {
	case "", "FALSE", "TRUE", "#N/A", "#REF!":
		return true
	}
	return false
}

// RowToCandidate maps one spreadsheet row. Missing trailing columns become
// empty values. Only the id and list items are trimmed; text cells are kept
// verbatim.
func RowToCandidate(row []string) (models.Candidate, error) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	id := NormalizeID(cell(colID))
	if IsSentinelID(id) {
		return models.Candidate{}, apperrors.NewMappingError(-1, fmt.Sprintf("invalid id %q", cell(colID)))
	}

	return models.Candidate{
		ID:                   id,
		Headline:             cell(colHeadline),
		Sectors:              splitList(cell(colSectors)),
		Tags:                 splitList(cell(colTags)),
		ResumeURL:            cell(colResumeURL),
		Category:             cell(colCategory),
		Title:                cell(colTitle),
		Summary:              cell(colSummary),
		Location:             cell(colLocation),
		RelocationPreference: cell(colRelocation),
		NotableEmployers:     cell(colNotableEmployers),
		ResumeText:           cell(colResumeText),
	}, nil
}

// CandidateToRow is the inverse of RowToCandidate.
func CandidateToRow(c models.Candidate) []string {
	row := make([]string, columnCount)
	row[colID] = c.ID
	row[colHeadline] = c.Headline
	row[colSectors] = strings.Join(c.Sectors, ", ")
	row[colTags] = strings.Join(c.Tags, ", ")
	row[colResumeURL] = c.ResumeURL
	row[colCategory] = c.Category
	row[colTitle] = c.Title
	row[colSummary] = c.Summary
	row[colLocation] = c.Location
	row[colRelocation] = c.RelocationPreference
	row[colNotableEmployers] = c.NotableEmployers
	row[colResumeText] = c.ResumeText
	return row
}

// normalizeIDs applies the row id rules to candidates that did not come from
// rows, dropping sentinel ids.
func normalizeIDs(list []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(list))
	for _, c := range list {
		c.ID = NormalizeID(c.ID)
		if IsSentinelID(c.ID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// MapRows maps every row, skipping the ones that fail. It returns the valid
// candidates and the per-row errors.
func MapRows(rows [][]string) ([]models.Candidate, []error) {
	out := make([]models.Candidate, 0, len(rows))
	var errs []error
	for i, row := range rows {
		c, err := RowToCandidate(row)
		if err != nil {
			if se, ok := apperrors.AsStandard(err); ok {
				se.WithMetadata("row", i)
			}
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errs
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
