package usecase

import (
	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
	"github.com/kirillkom/vision-client/internal/i18n"
)

func messagesOr(t ports.Translator) ports.Translator {
	if t == nil {
		return i18n.Default().For(i18n.DefaultLanguage)
	}
	return t
}

type noopNotifier struct{}

func (noopNotifier) Notify(domain.Notification) string { return "" }

func notifierOr(n ports.Notifier) ports.Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
