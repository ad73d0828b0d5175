// Package notify delivers requested resumes by e-mail and alerts admins
// over SNS.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	commonaws "candidate-portal/internal/common/aws"
	apperrors "candidate-portal/internal/common/errors"
	"candidate-portal/internal/common/logger"
	"candidate-portal/internal/common/validation"
	"candidate-portal/internal/models"

	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
)

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const (
	emailBody = `Hello {{recipientName}},

You requested the resume for candidate {{candidateId}} ({{headline}}).

{{resume}}

{{message}}

This profile is confidential. Please do not forward it.`

	alertBody = `Resume for candidate {{candidateId}} was requested by {{recipientEmail}} (request {{requestId}}).`
)

type CandidateFinder interface {
	FetchByID(ctx context.Context, id string) (models.Candidate, bool)
}

type ActivityRecorder interface {
	Record(ctx context.Context, eventType models.EventType, data map[string]interface{}) models.TrackedEvent
}

type Config struct {
	EmailEnabled  bool
	FromEmail     string
	Subject       string
	AlertsEnabled bool
	TopicARN      string
}

type ResumeNotifier struct {
	cfg        Config
	candidates CandidateFinder
	email      commonaws.EmailSender
	alerts     commonaws.Publisher
	activity   ActivityRecorder
	logger     logger.Logger
	now        func() time.Time
}

// NewResumeNotifier accepts nil email, alerts and activity collaborators;
// the corresponding step is then skipped.
func NewResumeNotifier(cfg Config, candidates CandidateFinder, email commonaws.EmailSender, alerts commonaws.Publisher, activity ActivityRecorder, log logger.Logger) *ResumeNotifier {
	return &ResumeNotifier{
		cfg:        cfg,
		candidates: candidates,
		email:      email,
		alerts:     alerts,
		activity:   activity,
		logger:     log.WithFields(map[string]interface{}{"component": "resume-notifier"}),
		now:        time.Now,
	}
}

// RequestResume e-mails the candidate's resume link to the requester,
// alerts admins and records a download event. The resume URL is sent as
// stored.
func (n *ResumeNotifier) RequestResume(ctx context.Context, req models.ResumeRequest) (*models.ResumeRequestResult, error) {
	if res := validation.Validate(validation.ResumeRequestSchema, req); !res.Valid {
		return nil, res.Err()
	}

	c, ok := n.candidates.FetchByID(ctx, req.CandidateID)
	if !ok {
		return nil, apperrors.NewNotFoundError("candidate", req.CandidateID)
	}
	if c.ResumeURL == "" && c.ResumeText == "" {
		return nil, apperrors.NewNotFoundError("resume", c.ID)
	}

	result := &models.ResumeRequestResult{
		RequestID:   uuid.New().String(),
		CandidateID: c.ID,
		Status:      StatusDisabled,
		SentAt:      n.now().UTC().Format(time.RFC3339),
	}

	data := map[string]interface{}{
		"requestId":      result.RequestID,
		"candidateId":    c.ID,
		"headline":       c.Headline,
		"recipientEmail": req.RecipientEmail,
		"recipientName":  firstNonEmpty(req.RecipientName, "there"),
		"message":        req.Message,
		"resume":         resumeSection(c),
	}

	if n.cfg.EmailEnabled && n.email != nil {
		out, err := n.email.SendEmail(ctx, commonaws.TextEmail(
			n.cfg.FromEmail,
			req.RecipientEmail,
			n.cfg.Subject,
			renderTemplate(emailBody, data),
		))
		if err != nil {
			n.logger.Error("Resume email send failed", map[string]interface{}{
				"candidateId": c.ID,
				"requestId":   result.RequestID,
				"error":       err,
			})
			return nil, apperrors.NewNotificationSendFailedError("email", err)
		}
		result.EmailMessageID = awsv2.ToString(out.MessageId)
		result.Status = StatusSent
	}

	if n.cfg.AlertsEnabled && n.alerts != nil {
		out, err := n.alerts.Publish(ctx, commonaws.TopicMessage(
			n.cfg.TopicARN,
			"Resume requested",
			renderTemplate(alertBody, data),
			map[string]string{"candidateId": c.ID, "eventType": string(models.EventDownload)},
		))
		if err != nil {
			n.logger.Warn("Admin alert publish failed", map[string]interface{}{
				"requestId": result.RequestID,
				"error":     err,
			})
		} else {
			result.AlertMessageID = awsv2.ToString(out.MessageId)
		}
	}

	if n.activity != nil {
		n.activity.Record(ctx, models.EventDownload, map[string]interface{}{
			"candidateId": c.ID,
			"requestId":   result.RequestID,
			"status":      result.Status,
		})
	}

	n.logger.Info("Resume request processed", map[string]interface{}{
		"candidateId": c.ID,
		"requestId":   result.RequestID,
		"status":      result.Status,
	})
	return result, nil
}

func resumeSection(c models.Candidate) string {
	if c.ResumeURL != "" {
		return "Resume: " + c.ResumeURL
	}
	return c.ResumeText
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// renderTemplate replaces {{key}} placeholders and drops any left unfilled.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl
	for k, v := range data {
		value := ""
		if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, "{{"+k+"}}", value)
	}
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+2:]
	}
	return result
}
