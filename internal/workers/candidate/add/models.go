package addcandidate

import "candidate-portal/internal/models"

type Input struct {
	Candidate models.Candidate `json:"candidate"`
}

type Output struct {
	CandidateID string `json:"candidateId"`
	Outcome     string `json:"addOutcome"` // "appended" or "queued"
}
