// Package postgres provides the Postgres-backed vacancy store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

// VacancyStoreConfig controls the connection pool.
type VacancyStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// VacancyStore implements vacancy.Store on a pgx pool. The schema it
// expects lives in schema.sql at the repository root.
type VacancyStore struct {
	pool dbPool
}

// NewVacancyStore connects a pool using the provided config.
func NewVacancyStore(ctx context.Context, cfg VacancyStoreConfig) (*VacancyStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &VacancyStore{pool: pool}, nil
}

// NewVacancyStoreWithPool constructs a store from an existing pool
// (primarily for testing with pgxmock).
func NewVacancyStoreWithPool(pool dbPool) (*VacancyStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &VacancyStore{pool: pool}, nil
}

// Ping verifies database connectivity, for readiness probes.
func (s *VacancyStore) Ping(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *VacancyStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const upsertByExternalIDSQL = `
INSERT INTO vacancies (
	platform_id, external_id, title, company_id, city_id, region, salary,
	url, experience, employment, work_format, schedule, skills, education,
	description, address, contacts, published_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
ON CONFLICT (platform_id, external_id) DO UPDATE SET
	title = EXCLUDED.title,
	company_id = EXCLUDED.company_id,
	city_id = EXCLUDED.city_id,
	region = EXCLUDED.region,
	salary = EXCLUDED.salary,
	url = EXCLUDED.url,
	experience = EXCLUDED.experience,
	employment = EXCLUDED.employment,
	work_format = EXCLUDED.work_format,
	schedule = EXCLUDED.schedule,
	skills = EXCLUDED.skills,
	education = EXCLUDED.education,
	description = EXCLUDED.description,
	address = EXCLUDED.address,
	contacts = EXCLUDED.contacts,
	published_at = EXCLUDED.published_at
RETURNING (xmax = 0)`

const upsertByURLSQL = `
INSERT INTO vacancies (
	platform_id, external_id, title, company_id, city_id, region, salary,
	url, experience, employment, work_format, schedule, skills, education,
	description, address, contacts, published_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
)
ON CONFLICT (url) DO UPDATE SET
	title = EXCLUDED.title,
	company_id = EXCLUDED.company_id,
	city_id = EXCLUDED.city_id,
	region = EXCLUDED.region,
	salary = EXCLUDED.salary,
	experience = EXCLUDED.experience,
	employment = EXCLUDED.employment,
	work_format = EXCLUDED.work_format,
	schedule = EXCLUDED.schedule,
	skills = EXCLUDED.skills,
	education = EXCLUDED.education,
	description = EXCLUDED.description,
	address = EXCLUDED.address,
	contacts = EXCLUDED.contacts,
	published_at = EXCLUDED.published_at
RETURNING (xmax = 0)`

// Upsert writes one canonical record, keyed by (platform, external id) and
// falling back to URL identity. Repeated application converges: the second
// call overwrites mutable fields and reports created=false.
func (s *VacancyStore) Upsert(ctx context.Context, rec vacancy.Record) (bool, error) {
	if rec.Title == "" {
		return false, fmt.Errorf("record title is required")
	}
	if rec.ExternalID == "" && rec.URL == "" {
		return false, fmt.Errorf("record has neither external id nor url identity")
	}

	platformID, err := s.getOrCreateRef(ctx, "platforms", string(rec.Platform))
	if err != nil {
		return false, err
	}
	companyID, err := s.optionalRef(ctx, "companies", rec.CompanyName)
	if err != nil {
		return false, err
	}
	cityID, err := s.optionalRef(ctx, "cities", rec.CityName)
	if err != nil {
		return false, err
	}

	query := upsertByExternalIDSQL
	if rec.ExternalID == "" {
		query = upsertByURLSQL
	}

	args := []any{
		platformID,
		nullString(rec.ExternalID),
		rec.Title,
		companyID,
		cityID,
		rec.Region,
		rec.Salary,
		nullString(rec.URL),
		rec.Experience,
		rec.Employment,
		rec.WorkFormat,
		rec.Schedule,
		rec.Skills,
		rec.Education,
		rec.Description,
		rec.Address,
		rec.Contacts,
		nullTime(rec.PublishedAt),
	}

	var created bool
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&created); err != nil {
		return false, fmt.Errorf("upsert vacancy: %w", err)
	}
	return created, nil
}

// getOrCreateRef resolves a reference row id by name, creating it if absent.
// The insert-on-conflict-do-nothing plus read sequence stays race-free under
// concurrent runs because the name carries a uniqueness constraint.
func (s *VacancyStore) getOrCreateRef(ctx context.Context, table, name string) (int64, error) {
	insert := fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, table)
	if _, err := s.pool.Exec(ctx, insert, name); err != nil {
		return 0, fmt.Errorf("insert %s row: %w", table, err)
	}
	var id int64
	query := fmt.Sprintf(`SELECT id FROM %s WHERE name = $1`, table)
	if err := s.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select %s row: %w", table, err)
	}
	return id, nil
}

// optionalRef resolves a nullable reference row; an empty name yields NULL.
func (s *VacancyStore) optionalRef(ctx context.Context, table, name string) (*int64, error) {
	if name == "" {
		return nil, nil
	}
	id, err := s.getOrCreateRef(ctx, table, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

const listRecentSQL = `
SELECT
	p.name,
	COALESCE(v.external_id, ''),
	v.title,
	COALESCE(c.name, ''),
	COALESCE(ct.name, ''),
	v.region,
	v.salary,
	COALESCE(v.url, ''),
	v.experience,
	v.employment,
	v.work_format,
	v.schedule,
	v.skills,
	v.education,
	v.description,
	v.address,
	v.contacts,
	COALESCE(v.published_at, 'epoch'::timestamptz),
	v.created_at
FROM vacancies v
JOIN platforms p ON p.id = v.platform_id
LEFT JOIN companies c ON c.id = v.company_id
LEFT JOIN cities ct ON ct.id = v.city_id
WHERE ($1 = '' OR p.name = $1)
ORDER BY v.published_at DESC NULLS LAST
LIMIT $2`

// ListRecent returns stored records ordered by publication time, optionally
// filtered by platform.
func (s *VacancyStore) ListRecent(ctx context.Context, platform vacancy.Platform, limit int) ([]vacancy.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, listRecentSQL, string(platform), limit)
	if err != nil {
		return nil, fmt.Errorf("query vacancies: %w", err)
	}
	defer rows.Close()

	var out []vacancy.Record
	for rows.Next() {
		var rec vacancy.Record
		var platformName string
		if err := rows.Scan(
			&platformName,
			&rec.ExternalID,
			&rec.Title,
			&rec.CompanyName,
			&rec.CityName,
			&rec.Region,
			&rec.Salary,
			&rec.URL,
			&rec.Experience,
			&rec.Employment,
			&rec.WorkFormat,
			&rec.Schedule,
			&rec.Skills,
			&rec.Education,
			&rec.Description,
			&rec.Address,
			&rec.Contacts,
			&rec.PublishedAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan vacancy row: %w", err)
		}
		rec.Platform = vacancy.Platform(platformName)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// CountByPlatform reports the stored row count for one platform.
func (s *VacancyStore) CountByPlatform(ctx context.Context, platform vacancy.Platform) (int, error) {
	const query = `
SELECT COUNT(*)
FROM vacancies v
JOIN platforms p ON p.id = v.platform_id
WHERE p.name = $1`
	var count int
	if err := s.pool.QueryRow(ctx, query, string(platform)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count vacancies: %w", err)
	}
	return count, nil
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
