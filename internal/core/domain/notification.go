package domain

import "time"

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

const DefaultNotificationDuration = 5 * time.Second

// Notification.Duration: zero picks the per-type default, negative keeps the
// notification until it is removed.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp time.Time        `json:"timestamp"`
	Duration  time.Duration    `json:"duration"`
	Read      bool             `json:"read"`
}

func DefaultDuration(t NotificationType) time.Duration {
	switch t {
	case NotificationError:
		return 8 * time.Second
	case NotificationWarning:
		return 6 * time.Second
	default:
		return DefaultNotificationDuration
	}
}

const (
	ViewLogin      = "login"
	ViewRegister   = "register"
	ViewDashboard  = "dashboard"
	ViewDocuments  = "documents"
	ViewProcessing = "processing"
	ViewProfile    = "profile"
)
