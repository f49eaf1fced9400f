package domain

import "time"

// Env carries the impure inputs of an operation so Apply stays deterministic.
type Env struct {
	Now   time.Time
	NewID func() string
}

type ChangeKind string

const (
	ChangeFavoriteAdded        ChangeKind = "favorite_added"
	ChangeFavoriteRemoved      ChangeKind = "favorite_removed"
	ChangeWatchlistAdded       ChangeKind = "watchlist_added"
	ChangeWatchlistRemoved     ChangeKind = "watchlist_removed"
	ChangeWatched              ChangeKind = "watched"
	ChangeProgressUpdated      ChangeKind = "progress_updated"
	ChangeHistoryCleared       ChangeKind = "history_cleared"
	ChangeNotificationAdded    ChangeKind = "notification_added"
	ChangeNotificationRead     ChangeKind = "notification_read"
	ChangeAllNotificationsRead ChangeKind = "all_notifications_read"
	ChangeNotificationRemoved  ChangeKind = "notification_removed"
	ChangeNotificationsCleared ChangeKind = "notifications_cleared"
	ChangeWatermarkAdvanced    ChangeKind = "watermark_advanced"
)

// Change describes what an operation did. A zero Change means nothing changed
// and nothing needs to be persisted.
type Change struct {
	Kind           ChangeKind
	Fields         []ProfileField
	Title          *Title
	NotificationID string
}

func (c Change) IsZero() bool {
	return len(c.Fields) == 0
}

// Operation is a pure state transition on a profile.
type Operation interface {
	Apply(p *Profile, env Env) Change
}

func titleChange(kind ChangeKind, field ProfileField, t Title) Change {
	return Change{Kind: kind, Fields: []ProfileField{field}, Title: &t}
}

type AddFavorite struct{ Title Title }

func (op AddFavorite) Apply(p *Profile, _ Env) Change {
	if p.IsFavorite(op.Title.Key()) {
		return Change{}
	}
	p.Favorites = append(p.Favorites, op.Title)
	return titleChange(ChangeFavoriteAdded, FieldFavorites, op.Title)
}

type RemoveFavorite struct{ Title Title }

func (op RemoveFavorite) Apply(p *Profile, _ Env) Change {
	i := indexOfTitle(p.Favorites, op.Title.Key())
	if i < 0 {
		return Change{}
	}
	removed := p.Favorites[i]
	p.Favorites = removeTitleAt(p.Favorites, i)
	return titleChange(ChangeFavoriteRemoved, FieldFavorites, removed)
}

type ToggleFavorite struct{ Title Title }

func (op ToggleFavorite) Apply(p *Profile, env Env) Change {
	if p.IsFavorite(op.Title.Key()) {
		return RemoveFavorite(op).Apply(p, env)
	}
	return AddFavorite(op).Apply(p, env)
}

type AddToWatchlist struct{ Title Title }

func (op AddToWatchlist) Apply(p *Profile, _ Env) Change {
	if p.InWatchlist(op.Title.Key()) {
		return Change{}
	}
	p.MyList = append(p.MyList, op.Title)
	return titleChange(ChangeWatchlistAdded, FieldMyList, op.Title)
}

type RemoveFromWatchlist struct{ Title Title }

func (op RemoveFromWatchlist) Apply(p *Profile, _ Env) Change {
	i := indexOfTitle(p.MyList, op.Title.Key())
	if i < 0 {
		return Change{}
	}
	removed := p.MyList[i]
	p.MyList = removeTitleAt(p.MyList, i)
	return titleChange(ChangeWatchlistRemoved, FieldMyList, removed)
}

type ToggleWatchlist struct{ Title Title }

func (op ToggleWatchlist) Apply(p *Profile, env Env) Change {
	if p.InWatchlist(op.Title.Key()) {
		return RemoveFromWatchlist(op).Apply(p, env)
	}
	return AddToWatchlist(op).Apply(p, env)
}

// RecordWatched moves the title to the front of the history, keeping any
// progress already recorded for it.
type RecordWatched struct{ Title Title }

func (op RecordWatched) Apply(p *Profile, env Env) Change {
	entry := HistoryEntry{Title: op.Title, Timestamp: env.Now.UnixMilli()}
	next := make([]HistoryEntry, 0, len(p.History)+1)
	next = append(next, entry)
	for _, h := range p.History {
		if h.Title.ID == op.Title.ID {
			next[0].Progress = h.Progress
			continue
		}
		next = append(next, h)
	}
	if len(next) > HistoryLimit {
		next = next[:HistoryLimit]
	}
	p.History = next
	return titleChange(ChangeWatched, FieldHistory, op.Title)
}

type UpdateProgress struct {
	TitleID int
	Percent int
}

func (op UpdateProgress) Apply(p *Profile, _ Env) Change {
	i := indexOfHistory(p.History, op.TitleID)
	if i < 0 {
		return Change{}
	}
	percent := op.Percent
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	next := cloneHistory(p.History)
	next[i].Progress = percent
	p.History = next
	t := next[i].Title
	return Change{Kind: ChangeProgressUpdated, Fields: []ProfileField{FieldHistory}, Title: &t}
}

type ClearHistory struct{}

func (ClearHistory) Apply(p *Profile, _ Env) Change {
	p.History = []HistoryEntry{}
	return Change{Kind: ChangeHistoryCleared, Fields: []ProfileField{FieldHistory}}
}

type AppendNotification struct {
	Category NotificationCategory
	Title    string
	Message  string
}

func (op AppendNotification) Apply(p *Profile, env Env) Change {
	n := Notification{
		ID:        env.NewID(),
		Category:  op.Category,
		Title:     op.Title,
		Message:   op.Message,
		Time:      "Just now",
		Timestamp: env.Now.UnixMilli(),
	}
	next := make([]Notification, 0, len(p.Notifications)+1)
	next = append(next, n)
	p.Notifications = append(next, p.Notifications...)
	return Change{Kind: ChangeNotificationAdded, Fields: []ProfileField{FieldNotifications}, NotificationID: n.ID}
}

type MarkNotificationRead struct{ ID string }

func (op MarkNotificationRead) Apply(p *Profile, _ Env) Change {
	for i, n := range p.Notifications {
		if n.ID != op.ID {
			continue
		}
		if n.IsRead {
			return Change{}
		}
		next := cloneNotifications(p.Notifications)
		next[i].IsRead = true
		p.Notifications = next
		return Change{Kind: ChangeNotificationRead, Fields: []ProfileField{FieldNotifications}, NotificationID: op.ID}
	}
	return Change{}
}

type MarkAllRead struct{}

func (MarkAllRead) Apply(p *Profile, _ Env) Change {
	if p.UnreadCount() == 0 {
		return Change{}
	}
	next := cloneNotifications(p.Notifications)
	for i := range next {
		next[i].IsRead = true
	}
	p.Notifications = next
	return Change{Kind: ChangeAllNotificationsRead, Fields: []ProfileField{FieldNotifications}}
}

type RemoveNotification struct{ ID string }

func (op RemoveNotification) Apply(p *Profile, _ Env) Change {
	next := make([]Notification, 0, len(p.Notifications))
	for _, n := range p.Notifications {
		if n.ID != op.ID {
			next = append(next, n)
		}
	}
	if len(next) == len(p.Notifications) {
		return Change{}
	}
	p.Notifications = next
	return Change{Kind: ChangeNotificationRemoved, Fields: []ProfileField{FieldNotifications}, NotificationID: op.ID}
}

type ClearNotifications struct{}

func (ClearNotifications) Apply(p *Profile, _ Env) Change {
	p.Notifications = []Notification{}
	return Change{Kind: ChangeNotificationsCleared, Fields: []ProfileField{FieldNotifications}}
}

// AdvanceWatermark moves lastNotificationCheck forward. It never moves it back.
type AdvanceWatermark struct{ To int64 }

func (op AdvanceWatermark) Apply(p *Profile, _ Env) Change {
	if op.To <= p.LastNotificationCheck {
		return Change{}
	}
	p.LastNotificationCheck = op.To
	return Change{Kind: ChangeWatermarkAdvanced, Fields: []ProfileField{FieldLastNotificationCheck}}
}

func removeTitleAt(list []Title, i int) []Title {
	out := make([]Title, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}
