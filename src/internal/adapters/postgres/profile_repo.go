package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/jcline/jcline/src/internal/domain"
)

type PostgresProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

func (r *PostgresProfileRepo) InitSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			favorites JSONB NOT NULL DEFAULT '[]',
			my_list JSONB NOT NULL DEFAULT '[]',
			history JSONB NOT NULL DEFAULT '[]',
			notifications JSONB NOT NULL DEFAULT '[]',
			last_notification_check BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	return err
}

var columns = map[domain.ProfileField]string{
	domain.FieldFavorites:             "favorites",
	domain.FieldMyList:                "my_list",
	domain.FieldHistory:               "history",
	domain.FieldNotifications:         "notifications",
	domain.FieldLastNotificationCheck: "last_notification_check",
}

func (r *PostgresProfileRepo) Get(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT favorites, my_list, history, notifications, last_notification_check
		FROM profiles
		WHERE user_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, userID)

	var favorites, myList, history, notifications []byte
	var p domain.Profile
	err := row.Scan(&favorites, &myList, &history, &notifications, &p.LastNotificationCheck)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		name string
		raw  []byte
		dst  interface{}
	}{
		{"favorites", favorites, &p.Favorites},
		{"my_list", myList, &p.MyList},
		{"history", history, &p.History},
		{"notifications", notifications, &p.Notifications},
	} {
		if err := json.Unmarshal(col.raw, col.dst); err != nil {
			return nil, fmt.Errorf("decode %s: %w", col.name, err)
		}
	}
	p.Normalize()
	return &p, nil
}

// Create writes the whole document, replacing any existing one.
func (r *PostgresProfileRepo) Create(ctx context.Context, userID string, profile *domain.Profile) error {
	p := profile.Clone()
	p.Normalize()
	args, err := encodeLists(p)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (user_id, favorites, my_list, history, notifications, last_notification_check, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			favorites = EXCLUDED.favorites,
			my_list = EXCLUDED.my_list,
			history = EXCLUDED.history,
			notifications = EXCLUDED.notifications,
			last_notification_check = EXCLUDED.last_notification_check,
			updated_at = EXCLUDED.updated_at;
	`
	_, err = r.db.ExecContext(ctx, query, userID, args[0], args[1], args[2], args[3], p.LastNotificationCheck)
	return err
}

func (r *PostgresProfileRepo) UpdateFields(ctx context.Context, userID string, update domain.ProfileUpdate) error {
	query, args, err := buildUpdate(userID, update)
	if err != nil {
		return err
	}
	if query == "" {
		return nil
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// buildUpdate renders an UPDATE touching only the columns present in update.
func buildUpdate(userID string, update domain.ProfileUpdate) (string, []interface{}, error) {
	fields := update.Fields()
	if len(fields) == 0 {
		return "", nil, nil
	}

	var sets []string
	var args []interface{}
	for _, f := range fields {
		var v interface{}
		switch f {
		case domain.FieldFavorites:
			v = *update.Favorites
		case domain.FieldMyList:
			v = *update.MyList
		case domain.FieldHistory:
			v = *update.History
		case domain.FieldNotifications:
			v = *update.Notifications
		case domain.FieldLastNotificationCheck:
			v = *update.LastNotificationCheck
		}
		if f != domain.FieldLastNotificationCheck {
			b, err := json.Marshal(v)
			if err != nil {
				return "", nil, fmt.Errorf("encode %s: %w", f, err)
			}
			v = string(b)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", columns[f], len(args)))
	}
	args = append(args, userID)
	query := fmt.Sprintf("UPDATE profiles SET %s, updated_at = NOW() WHERE user_id = $%d",
		strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func encodeLists(p domain.Profile) ([4]string, error) {
	var out [4]string
	for i, v := range []interface{}{p.Favorites, p.MyList, p.History, p.Notifications} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode profile: %w", err)
		}
		out[i] = string(b)
	}
	return out, nil
}
