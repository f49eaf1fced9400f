package domain

import "time"

const (
	// HistoryLimit caps the watch history. Oldest entries are dropped first.
	HistoryLimit = 50

	ContinueWatchingLimit = 7

	// SeedWatermarkAge backdates the watermark of a freshly seeded profile so the
	// first derivation reports the last month of releases.
	SeedWatermarkAge = 30 * 24 * time.Hour
)

type HistoryEntry struct {
	Title     Title `json:"movie"`
	Progress  int   `json:"progress"`  // 0-100
	Timestamp int64 `json:"timestamp"` // epoch ms of the last watch
}

type NotificationCategory string

const (
	CategorySecurity NotificationCategory = "security"
	CategoryMovie    NotificationCategory = "movie"
	CategoryEpisode  NotificationCategory = "episode"
	CategorySystem   NotificationCategory = "system"
)

func (c NotificationCategory) Valid() bool {
	switch c {
	case CategorySecurity, CategoryMovie, CategoryEpisode, CategorySystem:
		return true
	}
	return false
}

type Notification struct {
	ID        string               `json:"id"`
	Category  NotificationCategory `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Time      string               `json:"time"`
	IsRead    bool                 `json:"isRead"`
	Timestamp int64                `json:"timestamp"`
}

// Profile is the per-user state shared by the local cache and the remote
// profile document. The JSON shape is the remote document shape.
type Profile struct {
	Favorites             []Title        `json:"favorites"`
	MyList                []Title        `json:"myList"`
	History               []HistoryEntry `json:"history"`
	Notifications         []Notification `json:"notifications"`
	LastNotificationCheck int64          `json:"lastNotificationCheck"`
}

func NewProfile() Profile {
	return Profile{
		Favorites:     []Title{},
		MyList:        []Title{},
		History:       []HistoryEntry{},
		Notifications: []Notification{},
	}
}

// Clone returns a copy that shares no list storage with p.
func (p Profile) Clone() Profile {
	return Profile{
		Favorites:             cloneTitles(p.Favorites),
		MyList:                cloneTitles(p.MyList),
		History:               cloneHistory(p.History),
		Notifications:         cloneNotifications(p.Notifications),
		LastNotificationCheck: p.LastNotificationCheck,
	}
}

// Normalize replaces nil lists with empty ones so documents never carry nulls.
func (p *Profile) Normalize() {
	if p.Favorites == nil {
		p.Favorites = []Title{}
	}
	if p.MyList == nil {
		p.MyList = []Title{}
	}
	if p.History == nil {
		p.History = []HistoryEntry{}
	}
	if p.Notifications == nil {
		p.Notifications = []Notification{}
	}
}

func (p Profile) IsFavorite(key TitleKey) bool {
	return indexOfTitle(p.Favorites, key) >= 0
}

func (p Profile) InWatchlist(key TitleKey) bool {
	return indexOfTitle(p.MyList, key) >= 0
}

func (p Profile) Progress(titleID int) int {
	if i := indexOfHistory(p.History, titleID); i >= 0 {
		return p.History[i].Progress
	}
	return 0
}

func (p Profile) UnreadCount() int {
	n := 0
	for _, notif := range p.Notifications {
		if !notif.IsRead {
			n++
		}
	}
	return n
}

// ContinueWatching lists started but unfinished titles, most recent first.
func (p Profile) ContinueWatching() []HistoryEntry {
	out := make([]HistoryEntry, 0, ContinueWatchingLimit)
	for _, h := range p.History {
		if h.Progress > 0 && h.Progress < 100 {
			out = append(out, h)
			if len(out) == ContinueWatchingLimit {
				break
			}
		}
	}
	return out
}

// ProfileView is the snapshot handed to the presentation layer.
type ProfileView struct {
	Profile
	UnreadCount      int            `json:"unreadCount"`
	ContinueWatching []HistoryEntry `json:"continueWatching"`
	SignedIn         bool           `json:"signedIn"`
}

func (p Profile) View(signedIn bool) ProfileView {
	return ProfileView{
		Profile:          p,
		UnreadCount:      p.UnreadCount(),
		ContinueWatching: p.ContinueWatching(),
		SignedIn:         signedIn,
	}
}

type ProfileField string

const (
	FieldFavorites             ProfileField = "favorites"
	FieldMyList                ProfileField = "myList"
	FieldHistory               ProfileField = "history"
	FieldNotifications         ProfileField = "notifications"
	FieldLastNotificationCheck ProfileField = "lastNotificationCheck"
)

// LocalFields are the fields mirrored into the device cache.
var LocalFields = []ProfileField{FieldFavorites, FieldMyList, FieldHistory}

// ProfileUpdate is a partial document write. Nil fields are left untouched.
type ProfileUpdate struct {
	Favorites             *[]Title        `json:"favorites,omitempty"`
	MyList                *[]Title        `json:"myList,omitempty"`
	History               *[]HistoryEntry `json:"history,omitempty"`
	Notifications         *[]Notification `json:"notifications,omitempty"`
	LastNotificationCheck *int64          `json:"lastNotificationCheck,omitempty"`
}

// UpdateFor copies the named fields of p into an update.
func (p Profile) UpdateFor(fields ...ProfileField) ProfileUpdate {
	var u ProfileUpdate
	for _, f := range fields {
		switch f {
		case FieldFavorites:
			v := cloneTitles(p.Favorites)
			u.Favorites = &v
		case FieldMyList:
			v := cloneTitles(p.MyList)
			u.MyList = &v
		case FieldHistory:
			v := cloneHistory(p.History)
			u.History = &v
		case FieldNotifications:
			v := cloneNotifications(p.Notifications)
			u.Notifications = &v
		case FieldLastNotificationCheck:
			v := p.LastNotificationCheck
			u.LastNotificationCheck = &v
		}
	}
	return u
}

func (u ProfileUpdate) Fields() []ProfileField {
	var fields []ProfileField
	if u.Favorites != nil {
		fields = append(fields, FieldFavorites)
	}
	if u.MyList != nil {
		fields = append(fields, FieldMyList)
	}
	if u.History != nil {
		fields = append(fields, FieldHistory)
	}
	if u.Notifications != nil {
		fields = append(fields, FieldNotifications)
	}
	if u.LastNotificationCheck != nil {
		fields = append(fields, FieldLastNotificationCheck)
	}
	return fields
}

func (u ProfileUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Apply overwrites the fields present in u.
func (p *Profile) Apply(u ProfileUpdate) {
	if u.Favorites != nil {
		p.Favorites = cloneTitles(*u.Favorites)
	}
	if u.MyList != nil {
		p.MyList = cloneTitles(*u.MyList)
	}
	if u.History != nil {
		p.History = cloneHistory(*u.History)
	}
	if u.Notifications != nil {
		p.Notifications = cloneNotifications(*u.Notifications)
	}
	if u.LastNotificationCheck != nil {
		p.LastNotificationCheck = *u.LastNotificationCheck
	}
	p.Normalize()
}

// SeedProfile builds the first remote document of a user from the device lists.
func SeedProfile(local Profile, now time.Time, welcomeID string) Profile {
	seed := Profile{
		Favorites: cloneTitles(local.Favorites),
		MyList:    cloneTitles(local.MyList),
		History:   cloneHistory(local.History),
		Notifications: []Notification{{
			ID:        welcomeID,
			Category:  CategoryMovie,
			Title:     "Welcome to J-cline",
			Message:   "Start exploring our premium 4K library today.",
			Time:      "Just now",
			Timestamp: now.UnixMilli(),
		}},
		LastNotificationCheck: now.Add(-SeedWatermarkAge).UnixMilli(),
	}
	seed.Normalize()
	return seed
}

func indexOfTitle(list []Title, key TitleKey) int {
	for i, t := range list {
		if t.Key() == key {
			return i
		}
	}
	return -1
}

func indexOfHistory(list []HistoryEntry, titleID int) int {
	for i, h := range list {
		if h.Title.ID == titleID {
			return i
		}
	}
	return -1
}

func cloneTitles(in []Title) []Title {
	out := make([]Title, len(in))
	copy(out, in)
	return out
}

func cloneHistory(in []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(in))
	copy(out, in)
	return out
}

func cloneNotifications(in []Notification) []Notification {
	out := make([]Notification, len(in))
	copy(out, in)
	return out
}
