package domain

import "time"

type User struct {
	ID        string    `json:"id"` // OIDC subject
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// Preferences are device-local settings. They never reach the remote profile.
type Preferences struct {
	Theme          Theme `json:"theme" validate:"omitempty,oneof=dark light"`
	NotifyMovies   bool  `json:"notifyMovies"`
	NotifyEpisodes bool  `json:"notifyEpisodes"`
	NotifySecurity bool  `json:"notifySecurity"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Theme:          ThemeDark,
		NotifyMovies:   true,
		NotifyEpisodes: true,
		NotifySecurity: true,
	}
}
