package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivnGl/hexlet-vacancy-analysis/internal/vacancy"
)

func sampleRecord() vacancy.Record {
	return vacancy.Record{
		Platform:    vacancy.PlatformHeadHunter,
		ExternalID:  "93353083",
		Title:       "Python разработчик",
		CompanyName: "Хекслет",
		CityName:    "Пермь",
		Region:      "Пермский край",
		Salary:      "от 100000 до 150000 RUR",
		URL:         "https://hh.ru/vacancy/93353083",
		Experience:  "От 1 года до 3 лет",
		Employment:  "Полная занятость",
		PublishedAt: time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC),
	}
}

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock requires the argument
// count of an expectation to match the actual query even when the values
// themselves are not being asserted.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func expectRef(mock pgxmock.PgxPoolIface, table, name string, id int64) {
	mock.ExpectExec("INSERT INTO " + table).
		WithArgs(name).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id FROM " + table).
		WithArgs(name).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
}

func TestUpsertInsertsNewRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	expectRef(mock, "platforms", "HeadHunter", 1)
	expectRef(mock, "companies", "Хекслет", 7)
	expectRef(mock, "cities", "Пермь", 3)

	mock.ExpectQuery("INSERT INTO vacancies").
		WithArgs(
			int64(1),
			pgxmock.AnyArg(),
			rec.Title,
			pgxmock.AnyArg(),
			pgxmock.AnyArg(),
			rec.Region,
			rec.Salary,
			pgxmock.AnyArg(),
			rec.Experience,
			rec.Employment,
			rec.WorkFormat,
			rec.Schedule,
			rec.Skills,
			rec.Education,
			rec.Description,
			rec.Address,
			rec.Contacts,
			pgxmock.AnyArg(),
		).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatesExistingRecord(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	expectRef(mock, "platforms", "HeadHunter", 1)
	expectRef(mock, "companies", "Хекслет", 7)
	expectRef(mock, "cities", "Пермь", 3)

	// xmax != 0 means the row existed already.
	mock.ExpectQuery("INSERT INTO vacancies").
		WithArgs(anyArgs(18)...).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(false))

	created, err := store.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertWithoutReferenceRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.CompanyName = ""
	rec.CityName = ""

	// Only the platform ref is resolved; empty names stay NULL.
	expectRef(mock, "platforms", "HeadHunter", 1)
	mock.ExpectQuery("INSERT INTO vacancies").
		WithArgs(anyArgs(18)...).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFallsBackToURLConflict(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Platform = vacancy.PlatformTelegram
	rec.ExternalID = ""
	rec.URL = "https://t.me/jobs/55"
	rec.CompanyName = ""
	rec.CityName = ""

	expectRef(mock, "platforms", "Telegram", 2)
	mock.ExpectQuery(`ON CONFLICT \(url\)`).
		WithArgs(anyArgs(18)...).
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(true))

	created, err := store.Upsert(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	rec := sampleRecord()
	rec.Title = ""
	_, err = store.Upsert(context.Background(), rec)
	assert.Error(t, err)

	rec = sampleRecord()
	rec.ExternalID = ""
	rec.URL = ""
	_, err = store.Upsert(context.Background(), rec)
	assert.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	published := time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)
	created := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{
		"name", "external_id", "title", "company", "city", "region", "salary",
		"url", "experience", "employment", "work_format", "schedule", "skills",
		"education", "description", "address", "contacts", "published_at", "created_at",
	}).AddRow(
		"HeadHunter", "93353083", "Python разработчик", "Хекслет", "Пермь",
		"Пермский край", "от 100000 RUR", "https://hh.ru/vacancy/93353083",
		"", "", "", "", "", "", "", "", "", published, created,
	)

	mock.ExpectQuery("SELECT").
		WithArgs("HeadHunter", 10).
		WillReturnRows(rows)

	out, err := store.ListRecent(context.Background(), vacancy.PlatformHeadHunter, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, vacancy.PlatformHeadHunter, out[0].Platform)
	assert.Equal(t, "93353083", out[0].ExternalID)
	assert.Equal(t, "Хекслет", out[0].CompanyName)
	assert.Equal(t, published, out[0].PublishedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByPlatform(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("SuperJob").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.CountByPlatform(context.Background(), vacancy.PlatformSuperJob)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewVacancyStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectExec("SELECT 1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
