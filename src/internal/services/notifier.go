package services

import (
	"fmt"

	"github.com/jcline/jcline/src/internal/domain"
)

// Mutator is the part of the Synchronizer the notifier needs.
type Mutator interface {
	Mutate(op domain.Operation) domain.Change
}

// Notifier turns list changes into system notifications in the feed.
type Notifier struct {
	sync Mutator
}

func NewNotifier(m Mutator) *Notifier {
	return &Notifier{sync: m}
}

// Attach subscribes the notifier to s.
func (n *Notifier) Attach(s *Synchronizer) {
	s.OnChange(n.Handle)
}

func (n *Notifier) Handle(c domain.Change) {
	draft, ok := systemNotification(c)
	if !ok {
		return
	}
	n.sync.Mutate(draft)
}

func systemNotification(c domain.Change) (domain.AppendNotification, bool) {
	name := ""
	if c.Title != nil {
		name = c.Title.DisplayName()
	}
	draft := domain.AppendNotification{Category: domain.CategorySystem}
	switch c.Kind {
	case domain.ChangeFavoriteAdded:
		draft.Title = "Added to Library"
		draft.Message = fmt.Sprintf(`"%s" is now in your favorites.`, name)
	case domain.ChangeFavoriteRemoved:
		draft.Title = "Removed from Library"
		draft.Message = fmt.Sprintf(`"%s" removed.`, name)
	case domain.ChangeWatchlistAdded:
		draft.Title = "Watchlist Updated"
		draft.Message = fmt.Sprintf(`"%s" added to your list.`, name)
	case domain.ChangeWatchlistRemoved:
		draft.Title = "Watchlist Updated"
		draft.Message = fmt.Sprintf(`"%s" removed from your list.`, name)
	case domain.ChangeHistoryCleared:
		draft.Title = "History Cleared"
		draft.Message = "Your watch history has been wiped."
	default:
		return draft, false
	}
	return draft, true
}
