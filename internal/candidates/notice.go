package candidates

import "candidate-portal/internal/common/logger"

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a viewer-facing message produced by the data service.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Notifier receives notices. The HTTP layer and job workers attach them to
// responses; the default implementation only logs.
type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type logNotifier struct {
	logger logger.Logger
}

func (l logNotifier) Notify(n Notice) {
	fields := map[string]interface{}{"notice": n.Message}
	switch n.Level {
	case NoticeError:
		l.logger.Error("User notice", fields)
	case NoticeWarning:
		l.logger.Warn("User notice", fields)
	default:
		l.logger.Info("User notice", fields)
	}
}
