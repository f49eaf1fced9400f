package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/jcline/jcline/src/internal/domain"
	"github.com/jcline/jcline/src/internal/logging"
	"github.com/jcline/jcline/src/internal/ports"
)

// Device cache keys.
const (
	keyFavorites      = "jcline-favorites"
	keyMyList         = "jcline-mylist"
	keyHistory        = "jcline-history"
	keyTheme          = "jc_theme_mode"
	keyNotifyMovies   = "jc_notif_movie"
	keyNotifyEpisodes = "jc_notif_episode"
	keyNotifySecurity = "jc_notif_security"
	keyRatingPrefix   = "jcline-user-rate-"

	MaxRating = 5
)

var ErrInvalidRating = errors.New("rating must be between 0 and 5")

// LocalProfile reads and writes the device copy of the profile lists and the
// device-only preferences. Reads never fail: missing or malformed values fall
// back to defaults.
type LocalProfile struct {
	cache ports.LocalCache
	log   zerolog.Logger
}

func NewLocalProfile(cache ports.LocalCache) *LocalProfile {
	return &LocalProfile{cache: cache, log: logging.Component("local_cache")}
}

// Load returns the cached lists. Notifications and the watermark are never
// cached on the device.
func (l *LocalProfile) Load() domain.Profile {
	p := domain.NewProfile()
	l.readJSON(keyFavorites, &p.Favorites)
	l.readJSON(keyMyList, &p.MyList)
	l.readJSON(keyHistory, &p.History)
	p.Normalize()
	return p
}

// SaveLists writes the given list fields of p. Other fields are ignored.
func (l *LocalProfile) SaveLists(p domain.Profile, fields ...domain.ProfileField) error {
	var errs []error
	for _, f := range fields {
		var err error
		switch f {
		case domain.FieldFavorites:
			err = l.writeJSON(keyFavorites, p.Favorites)
		case domain.FieldMyList:
			err = l.writeJSON(keyMyList, p.MyList)
		case domain.FieldHistory:
			err = l.writeJSON(keyHistory, p.History)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

func (l *LocalProfile) Preferences() domain.Preferences {
	prefs := domain.DefaultPreferences()
	if raw, err := l.cache.Get(keyTheme); err == nil {
		if t := domain.Theme(strings.TrimSpace(string(raw))); t == domain.ThemeDark || t == domain.ThemeLight {
			prefs.Theme = t
		}
	}
	prefs.NotifyMovies = l.readFlag(keyNotifyMovies)
	prefs.NotifyEpisodes = l.readFlag(keyNotifyEpisodes)
	prefs.NotifySecurity = l.readFlag(keyNotifySecurity)
	return prefs
}

func (l *LocalProfile) SavePreferences(prefs domain.Preferences) error {
	theme := prefs.Theme
	if theme == "" {
		theme = domain.ThemeDark
	}
	if err := l.cache.Set(keyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	for key, v := range map[string]bool{
		keyNotifyMovies:   prefs.NotifyMovies,
		keyNotifyEpisodes: prefs.NotifyEpisodes,
		keyNotifySecurity: prefs.NotifySecurity,
	} {
		if err := l.writeJSON(key, v); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

// Rating returns the user's star rating for a title, 0 when unrated.
func (l *LocalProfile) Rating(titleID int) int {
	raw, err := l.cache.Get(keyRatingPrefix + strconv.Itoa(titleID))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || n < 0 || n > MaxRating {
		return 0
	}
	return n
}

func (l *LocalProfile) SetRating(titleID, stars int) error {
	if stars < 0 || stars > MaxRating {
		return ErrInvalidRating
	}
	key := keyRatingPrefix + strconv.Itoa(titleID)
	if stars == 0 {
		return l.cache.Delete(key)
	}
	return l.cache.Set(key, []byte(strconv.Itoa(stars)))
}

// Clear wipes the device cache, preferences and ratings included.
func (l *LocalProfile) Clear() error {
	return l.cache.Clear()
}

func (l *LocalProfile) readJSON(key string, dst interface{}) {
	raw, err := l.cache.Get(key)
	if err != nil {
		if !errors.Is(err, ports.ErrCacheMiss) {
			l.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		return
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		l.log.Warn().Err(err).Str("key", key).Msg("malformed cache entry, using empty value")
	}
}

func (l *LocalProfile) readFlag(key string) bool {
	raw, err := l.cache.Get(key)
	if err != nil {
		return true
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}
	return v
}

func (l *LocalProfile) writeJSON(key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.cache.Set(key, raw)
}
