package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/vision-client/internal/core/domain"
	"github.com/kirillkom/vision-client/internal/core/ports"
	"github.com/kirillkom/vision-client/internal/i18n"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const (
	themeStorageKey    = "theme"
	languageStorageKey = "language"
)

// PreferencesStore holds UI state: theme, language, current view, sidebar
// and the notification queue. It serves as the Navigator and Notifier for
// the other stores.
type PreferencesStore struct {
	store  ports.KeyValueStore
	bundle *i18n.Bundle
	logger *slog.Logger

	mu            sync.Mutex
	theme         Theme
	language      string
	view          string
	sidebarOpen   bool
	notifications []domain.Notification
	timers        map[string]*time.Timer
}

func NewPreferencesStore(store ports.KeyValueStore, bundle *i18n.Bundle, logger *slog.Logger) *PreferencesStore {
	if bundle == nil {
		bundle = i18n.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesStore{
		store:       store,
		bundle:      bundle,
		logger:      logger,
		theme:       ThemeLight,
		language:    i18n.DefaultLanguage,
		view:        domain.ViewDashboard,
		sidebarOpen: true,
		timers:      make(map[string]*time.Timer),
	}
}

// Load applies the persisted theme and language.
func (p *PreferencesStore) Load(ctx context.Context) error {
	theme, ok, err := p.store.Get(ctx, themeStorageKey)
	if err != nil {
		return fmt.Errorf("read theme: %w", err)
	}
	lang, langOK, err := p.store.Get(ctx, languageStorageKey)
	if err != nil {
		return fmt.Errorf("read language: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ok && (Theme(theme) == ThemeLight || Theme(theme) == ThemeDark) {
		p.theme = Theme(theme)
	}
	if langOK {
		p.language = i18n.MatchLanguage(lang)
	}
	return nil
}

func (p *PreferencesStore) Theme() Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

func (p *PreferencesStore) SetTheme(ctx context.Context, theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return domain.WrapError(domain.ErrInvalidInput, "preferences.theme", fmt.Errorf("unknown theme %q", theme))
	}
	p.mu.Lock()
	p.theme = theme
	p.mu.Unlock()
	return p.store.Set(ctx, themeStorageKey, string(theme))
}

func (p *PreferencesStore) ToggleTheme(ctx context.Context) (Theme, error) {
	next := ThemeDark
	if p.Theme() == ThemeDark {
		next = ThemeLight
	}
	return next, p.SetTheme(ctx, next)
}

func (p *PreferencesStore) Language() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.language
}

// SetLanguage accepts any language preference and stores the matched
// supported language.
func (p *PreferencesStore) SetLanguage(ctx context.Context, preference string) (string, error) {
	lang := i18n.MatchLanguage(preference)
	p.mu.Lock()
	p.language = lang
	p.mu.Unlock()
	return lang, p.store.Set(ctx, languageStorageKey, lang)
}

// Messages follows language changes.
func (p *PreferencesStore) Messages() ports.Translator {
	return p.bundle.Dynamic(p.Language)
}

func (p *PreferencesStore) Navigate(view string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.view = view
}

func (p *PreferencesStore) CurrentView() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.view
}

func (p *PreferencesStore) SidebarOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sidebarOpen
}

func (p *PreferencesStore) SetSidebarOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sidebarOpen = open
}

func (p *PreferencesStore) ToggleSidebar() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sidebarOpen = !p.sidebarOpen
	return p.sidebarOpen
}

// Notify prepends n and schedules its removal after its duration.
func (p *PreferencesStore) Notify(n domain.Notification) string {
	n.ID = "notification-" + uuid.NewString()
	n.Timestamp = time.Now()
	n.Read = false
	if n.Duration == 0 {
		n.Duration = domain.DefaultDuration(n.Type)
	}
	if n.Title == "" {
		n.Title = p.defaultTitle(n.Type)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append([]domain.Notification{n}, p.notifications...)
	if n.Duration > 0 {
		id := n.ID
		p.timers[id] = time.AfterFunc(n.Duration, func() { p.RemoveNotification(id) })
	}
	p.logger.Debug("notification_added", "type", n.Type, "title", n.Title)
	return n.ID
}

func (p *PreferencesStore) Success(title, message string) string {
	return p.Notify(domain.Notification{Type: domain.NotificationSuccess, Title: title, Message: message})
}

func (p *PreferencesStore) Error(title, message string) string {
	return p.Notify(domain.Notification{Type: domain.NotificationError, Title: title, Message: message})
}

func (p *PreferencesStore) Info(title, message string) string {
	return p.Notify(domain.Notification{Type: domain.NotificationInfo, Title: title, Message: message})
}

func (p *PreferencesStore) Warning(title, message string) string {
	return p.Notify(domain.Notification{Type: domain.NotificationWarning, Title: title, Message: message})
}

func (p *PreferencesStore) RemoveNotification(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.timers[id]; ok {
		t.Stop()
		delete(p.timers, id)
	}
	for i, n := range p.notifications {
		if n.ID == id {
			p.notifications = append(p.notifications[:i:i], p.notifications[i+1:]...)
			return
		}
	}
}

func (p *PreferencesStore) MarkRead(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.notifications {
		if p.notifications[i].ID == id {
			p.notifications[i].Read = true
			return
		}
	}
}

func (p *PreferencesStore) ClearNotifications() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
	p.notifications = nil
}

// Notifications newest first.
func (p *PreferencesStore) Notifications() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Notification(nil), p.notifications...)
}

func (p *PreferencesStore) UnreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, item := range p.notifications {
		if !item.Read {
			n++
		}
	}
	return n
}

func (p *PreferencesStore) defaultTitle(t domain.NotificationType) string {
	key := "notify.info_title"
	switch t {
	case domain.NotificationSuccess:
		key = "notify.success_title"
	case domain.NotificationError:
		key = "notify.error_title"
	case domain.NotificationWarning:
		key = "notify.warning_title"
	}
	return p.bundle.Translate(p.Language(), key)
}
