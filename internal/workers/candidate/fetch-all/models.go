package fetchall

import "candidate-portal/internal/models"

type Output struct {
	Candidates []models.Candidate `json:"candidates"`
	Count      int                `json:"count"`
	Source     string             `json:"source"`
	Notice     string             `json:"notice,omitempty"`
}
