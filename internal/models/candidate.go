// internal/models/candidate.go
package models

import "time"

// Candidate is an anonymized profile shown to viewers.
type Candidate struct {
	ID                   string   `json:"id"`
	Headline             string   `json:"headline"`
	Sectors              []string `json:"sectors"`
	Tags                 []string `json:"tags"`
	ResumeURL            string   `json:"resumeUrl"`
	ResumeText           string   `json:"resumeText"`
	Category             string   `json:"category"`
	Title                string   `json:"title"`
	Summary              string   `json:"summary"`
	Location             string   `json:"location"`
	RelocationPreference string   `json:"relocationPreference"`
	NotableEmployers     string   `json:"notableEmployers"`
}

// CachedCandidateSet is the persisted form of the last good fetch.
type CachedCandidateSet struct {
	Candidates []Candidate `json:"candidates"`
	CachedAt   time.Time   `json:"cachedAt"`
}

// Age returns how long ago the set was cached.
func (s CachedCandidateSet) Age(now time.Time) time.Duration {
	return now.Sub(s.CachedAt)
}

// DataSource identifies where a candidate list came from.
type DataSource string

const (
	SourceRemote    DataSource = "remote"
	SourceSecondary DataSource = "secondary"
	SourceCache     DataSource = "cache"
	SourceMock      DataSource = "mock"
)
