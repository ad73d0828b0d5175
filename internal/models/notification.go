// internal/models/notification.go
package models

// ResumeRequest asks for a candidate's resume to be e-mailed to a viewer.
type ResumeRequest struct {
	CandidateID    string `json:"candidateId"`
	RecipientEmail string `json:"recipientEmail"`
	RecipientName  string `json:"recipientName,omitempty"`
	Message        string `json:"message,omitempty"`
}

type ResumeRequestResult struct {
	RequestID      string `json:"requestId"`
	CandidateID    string `json:"candidateId"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	AlertMessageID string `json:"alertMessageId,omitempty"`
	Status         string `json:"status"` // "sent", "disabled"
	SentAt         string `json:"sentAt"`
}
