package fetchbyid

import "candidate-portal/internal/models"

type Input struct {
	CandidateID string `json:"candidateId"`
}

// Output reports absence with Found=false rather than an error so the
// process can branch on it.
type Output struct {
	Found     bool              `json:"candidateFound"`
	Candidate *models.Candidate `json:"candidate,omitempty"`
}
