package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/jcline/jcline/src/internal/domain"
)

func TestProfileStorePartialUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewProfileStore()

	if _, err := s.Get(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("Get err = %v, want ErrProfileNotFound", err)
	}
	if err := s.UpdateFields(ctx, "u1", domain.ProfileUpdate{}); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("UpdateFields err = %v, want ErrProfileNotFound", err)
	}

	p := domain.NewProfile()
	p.Favorites = []domain.Title{{ID: 1, MediaKind: domain.MediaKindMovie}}
	p.LastNotificationCheck = 10
	if err := s.Create(ctx, "u1", &p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	next := domain.NewProfile()
	next.MyList = []domain.Title{{ID: 2, MediaKind: domain.MediaKindTV}}
	if err := s.UpdateFields(ctx, "u1", next.UpdateFor(domain.FieldMyList)); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Favorites) != 1 || len(got.MyList) != 1 || got.LastNotificationCheck != 10 {
		t.Errorf("profile = %+v", got)
	}

	got.Favorites[0].ID = 99
	again, _ := s.Get(ctx, "u1")
	if again.Favorites[0].ID != 1 {
		t.Error("Get returned shared storage")
	}
}
