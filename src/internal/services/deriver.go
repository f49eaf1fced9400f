package services

import (
	"fmt"
	"time"

	"github.com/jcline/jcline/src/internal/domain"
)

// MaxDerivedPerCategory caps new-content notifications per category per check.
const MaxDerivedPerCategory = 3

// Derivation is the outcome of one new-content check.
type Derivation struct {
	Drafts    []domain.AppendNotification
	Watermark int64
}

// Derive selects the candidates released in (lastCheck, now] and turns the
// first few of each enabled category into notification drafts. Candidates keep
// their source order. The returned watermark is always now.
func Derive(lastCheck int64, now time.Time, movies, episodes []domain.NewContentItem, prefs domain.Preferences) Derivation {
	nowMillis := now.UnixMilli()
	d := Derivation{Watermark: nowMillis}

	if prefs.NotifyMovies {
		for _, item := range inWindow(movies, lastCheck, nowMillis) {
			d.Drafts = append(d.Drafts, domain.AppendNotification{
				Category: domain.CategoryMovie,
				Title:    "New Movie Released",
				Message:  fmt.Sprintf(`"%s" is now available to watch.`, item.Name),
			})
		}
	}
	if prefs.NotifyEpisodes {
		for _, item := range inWindow(episodes, lastCheck, nowMillis) {
			d.Drafts = append(d.Drafts, domain.AppendNotification{
				Category: domain.CategoryEpisode,
				Title:    "New Episodes Available",
				Message:  fmt.Sprintf(`New episodes of "%s" are now streaming.`, item.Name),
			})
		}
	}
	return d
}

func inWindow(items []domain.NewContentItem, after, until int64) []domain.NewContentItem {
	var out []domain.NewContentItem
	for _, item := range items {
		at, ok := domain.ParseCatalogDate(item.Date)
		if !ok || at <= after || at > until {
			continue
		}
		out = append(out, item)
		if len(out) == MaxDerivedPerCategory {
			break
		}
	}
	return out
}
