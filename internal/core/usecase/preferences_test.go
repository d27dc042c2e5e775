package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/vision-client/internal/core/domain"
)

func TestPreferencesLoadAndPersist(t *testing.T) {
	kv := newMemoryKV()
	ctx := context.Background()
	_ = kv.Set(ctx, "theme", "dark")
	_ = kv.Set(ctx, "language", "en-GB")

	p := NewPreferencesStore(kv, nil, testLogger)
	if err := p.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Theme() != ThemeDark || p.Language() != "en" {
		t.Fatalf("loaded theme=%s language=%s", p.Theme(), p.Language())
	}

	next, err := p.ToggleTheme(ctx)
	if err != nil || next != ThemeLight {
		t.Fatalf("ToggleTheme() = %s, %v", next, err)
	}
	if v, _, _ := kv.Get(ctx, "theme"); v != "light" {
		t.Fatalf("stored theme = %q", v)
	}
	if err := p.SetTheme(ctx, Theme("neon")); err == nil {
		t.Fatalf("expected unknown theme to be rejected")
	}

	lang, err := p.SetLanguage(ctx, "de-DE")
	if err != nil || lang != "fr" {
		t.Fatalf("SetLanguage(de-DE) = %s, %v", lang, err)
	}
	if v, _, _ := kv.Get(ctx, "language"); v != "fr" {
		t.Fatalf("stored language = %q", v)
	}
}

func TestPreferencesLoadIgnoresUnknownTheme(t *testing.T) {
	kv := newMemoryKV()
	_ = kv.Set(context.Background(), "theme", "sepia")
	p := NewPreferencesStore(kv, nil, testLogger)
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Theme() != ThemeLight {
		t.Fatalf("theme = %s, want light", p.Theme())
	}
}

func TestPreferencesMessagesFollowLanguage(t *testing.T) {
	p := NewPreferencesStore(newMemoryKV(), nil, testLogger)
	msgs := p.Messages()
	if got := msgs.Translate("auth.login_success"); got != "Connexion réussie !" {
		t.Fatalf("fr message = %q", got)
	}
	if _, err := p.SetLanguage(context.Background(), "en"); err != nil {
		t.Fatalf("SetLanguage() error = %v", err)
	}
	if got := msgs.Translate("auth.login_success"); got == "Connexion réussie !" {
		t.Fatalf("message did not follow language change")
	}
}

func TestPreferencesNotificationsNewestFirst(t *testing.T) {
	p := NewPreferencesStore(newMemoryKV(), nil, testLogger)

	first := p.Notify(domain.Notification{Type: domain.NotificationInfo, Message: "one", Duration: -1})
	second := p.Error("", "two")

	items := p.Notifications()
	if len(items) != 2 || items[0].ID != second || items[1].ID != first {
		t.Fatalf("notifications = %+v", items)
	}
	if items[0].Title != "Erreur" || items[0].Duration != 8*time.Second {
		t.Fatalf("defaults not applied: %+v", items[0])
	}
	if items[1].Title != "Information" {
		t.Fatalf("info title = %q", items[1].Title)
	}

	p.MarkRead(first)
	if p.UnreadCount() != 1 {
		t.Fatalf("unread = %d", p.UnreadCount())
	}
	p.RemoveNotification(second)
	if len(p.Notifications()) != 1 {
		t.Fatalf("RemoveNotification() left %d", len(p.Notifications()))
	}
	p.ClearNotifications()
	if len(p.Notifications()) != 0 {
		t.Fatalf("ClearNotifications() left items")
	}
}

func TestPreferencesNotificationExpires(t *testing.T) {
	p := NewPreferencesStore(newMemoryKV(), nil, testLogger)
	p.Notify(domain.Notification{Type: domain.NotificationSuccess, Message: "done", Duration: 10 * time.Millisecond})

	deadline := time.Now().Add(2 * time.Second)
	for len(p.Notifications()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("notification did not expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPreferencesNavigationAndSidebar(t *testing.T) {
	p := NewPreferencesStore(newMemoryKV(), nil, testLogger)
	if p.CurrentView() != domain.ViewDashboard {
		t.Fatalf("initial view = %s", p.CurrentView())
	}
	p.Navigate(domain.ViewLogin)
	if p.CurrentView() != domain.ViewLogin {
		t.Fatalf("view = %s", p.CurrentView())
	}
	if p.ToggleSidebar() {
		t.Fatalf("sidebar should close on first toggle")
	}
	p.SetSidebarOpen(true)
	if !p.SidebarOpen() {
		t.Fatalf("sidebar closed")
	}
}
