package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zhouzirui/riji/backend/internal/model/user"
)

type userRow struct {
	OpenID          string `db:"open_id"`
	UnionID         string `db:"union_id"`
	NickName        string `db:"nick_name"`
	AvatarURL       string `db:"avatar_url"`
	Gender          int    `db:"gender"`
	City            string `db:"city"`
	Province        string `db:"province"`
	Country         string `db:"country"`
	Language        string `db:"language"`
	PhoneNumber     string `db:"phone_number"`
	PurePhoneNumber string `db:"pure_phone_number"`
	CountryCode     string `db:"country_code"`
	CreatedAt       int64  `db:"created_at"`
	UpdatedAt       int64  `db:"updated_at"`
}

func (r userRow) user() user.User {
	return user.User{
		OpenID:          r.OpenID,
		UnionID:         r.UnionID,
		NickName:        r.NickName,
		AvatarURL:       r.AvatarURL,
		Gender:          r.Gender,
		City:            r.City,
		Province:        r.Province,
		Country:         r.Country,
		Language:        r.Language,
		PhoneNumber:     r.PhoneNumber,
		PurePhoneNumber: r.PurePhoneNumber,
		CountryCode:     r.CountryCode,
		CreatedAt:       fromMillis(r.CreatedAt),
		UpdatedAt:       fromMillis(r.UpdatedAt),
	}
}

// UserRepository persists WeChat users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository wraps an open database.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Get loads a user by openId.
func (r *UserRepository) Get(ctx context.Context, openID string) (user.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM users WHERE open_id = ?`, openID)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return row.user(), nil
}

// Upsert inserts u or replaces the stored profile; created_at is kept on conflict.
func (r *UserRepository) Upsert(ctx context.Context, u user.User) error {
	row := userRow{
		OpenID:          u.OpenID,
		UnionID:         u.UnionID,
		NickName:        u.NickName,
		AvatarURL:       u.AvatarURL,
		Gender:          u.Gender,
		City:            u.City,
		Province:        u.Province,
		Country:         u.Country,
		Language:        u.Language,
		PhoneNumber:     u.PhoneNumber,
		PurePhoneNumber: u.PurePhoneNumber,
		CountryCode:     u.CountryCode,
		CreatedAt:       toMillis(u.CreatedAt),
		UpdatedAt:       toMillis(u.UpdatedAt),
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (open_id, union_id, nick_name, avatar_url, gender, city, province, country, language,
			phone_number, pure_phone_number, country_code, created_at, updated_at)
		VALUES (:open_id, :union_id, :nick_name, :avatar_url, :gender, :city, :province, :country, :language,
			:phone_number, :pure_phone_number, :country_code, :created_at, :updated_at)
		ON CONFLICT(open_id) DO UPDATE SET
			union_id = excluded.union_id,
			nick_name = excluded.nick_name,
			avatar_url = excluded.avatar_url,
			gender = excluded.gender,
			city = excluded.city,
			province = excluded.province,
			country = excluded.country,
			language = excluded.language,
			phone_number = excluded.phone_number,
			pure_phone_number = excluded.pure_phone_number,
			country_code = excluded.country_code,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
