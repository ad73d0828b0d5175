package activityrecord

import "candidate-portal/internal/models"

type Input struct {
	Type models.EventType       `json:"type"`
	Data map[string]interface{} `json:"data"`
}

type Output struct {
	EventID   string `json:"eventId"`
	Timestamp string `json:"eventTimestamp"`
}
