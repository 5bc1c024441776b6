package store

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one entry in the ui.notifications list.
type Notification struct {
	ID         string
	Type       string
	Message    string
	Persistent bool
	CreatedAt  time.Time
}

// Notification types.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// SetLoading sets the global ui.loading flag.
func (s *Store) SetLoading(loading bool) error {
	return s.SetState(map[string]any{
		"ui": map[string]any{"loading": loading},
	}, Action{Type: ActionSetLoading})
}

// AddNotification appends a notification to ui.notifications and returns its
// ID. Unless the notification is marked persistent, an owned timer removes
// it after the store's notification TTL.
func (s *Store) AddNotification(n Notification) (string, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotifyInfo
	}
	n.CreatedAt = timeNow()
	action := Action{Type: ActionNotificationAdd, Meta: map[string]any{"id": n.ID}}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return "", ErrStoreDisposed
	}
	list := s.notificationsLocked()
	list = append(list, n)
	snapshot, listeners := s.applyLocked(map[string]any{
		"ui": map[string]any{"notifications": list},
	}, action)
	if !n.Persistent {
		id := n.ID
		s.timers["notif:"+id] = time.AfterFunc(s.notifTTL, func() {
			_ = s.RemoveNotification(id)
		})
	}
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return n.ID, nil
}

// RemoveNotification removes a notification by ID and cancels its expiry
// timer.
func (s *Store) RemoveNotification(id string) error {
	action := Action{Type: ActionNotificationRemove, Meta: map[string]any{"id": id}}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	if timer, ok := s.timers["notif:"+id]; ok {
		timer.Stop()
		delete(s.timers, "notif:"+id)
	}
	list := s.notificationsLocked()
	kept := make([]any, 0, len(list))
	for _, item := range list {
		if n, ok := item.(Notification); ok && n.ID == id {
			continue
		}
		kept = append(kept, item)
	}
	snapshot, listeners := s.applyLocked(map[string]any{
		"ui": map[string]any{"notifications": kept},
	}, action)
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}

// notificationsLocked returns the current ui.notifications list.
// Caller holds s.mu.
func (s *Store) notificationsLocked() []any {
	ui, _ := s.state["ui"].(map[string]any)
	list, _ := ui["notifications"].([]any)
	return list
}

// ShowModal sets ui.activeModal.
func (s *Store) ShowModal(modal any) error {
	return s.SetState(map[string]any{
		"ui": map[string]any{"activeModal": modal},
	}, Action{Type: ActionModalShow})
}

// HideModal clears ui.activeModal.
func (s *Store) HideModal() error {
	return s.SetState(map[string]any{
		"ui": map[string]any{"activeModal": nil},
	}, Action{Type: ActionModalHide})
}

// SetSidebarCollapsed sets the ui.sidebarCollapsed flag.
func (s *Store) SetSidebarCollapsed(collapsed bool) error {
	return s.SetState(map[string]any{
		"ui": map[string]any{"sidebarCollapsed": collapsed},
	}, Action{Type: ActionSidebarToggle})
}

// SetCurrentUser sets the session user.
func (s *Store) SetCurrentUser(user any) error {
	return s.SetState(map[string]any{
		"currentUser": user,
	}, Action{Type: ActionUserSet})
}

// SetCurrentDate sets the session's currentDate and currentTime fields.
func (s *Store) SetCurrentDate(t time.Time) error {
	return s.SetState(map[string]any{
		"currentDate": t.Format("2006-01-02"),
		"currentTime": t.Format("15:04:05"),
	}, Action{Type: ActionClockSet})
}

// UpdateSettings deep-merges the partial into the settings subtree and
// persists the result to the durable KV immediately.
func (s *Store) UpdateSettings(partial map[string]any) error {
	action := Action{Type: ActionSettingsUpdate}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrStoreDisposed
	}
	snapshot, listeners := s.applyLocked(map[string]any{"settings": partial}, action)
	s.persistSettingsLocked()
	s.mu.Unlock()

	s.notifyListeners(listeners, snapshot, action)
	return nil
}
