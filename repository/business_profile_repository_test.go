package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirphl/business-registry/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "acme", want: "%acme%"},
		{in: "50% off", want: `%50\% off%`},
		{in: "a_b", want: `%a\_b%`},
		{in: `back\slash`, want: `%back\\slash%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, containsPattern(tt.in))
		})
	}
}

func TestBusinessProfileFilter_NameIsMatchedLiterally(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`legal_name ILIKE $1 ESCAPE '\' OR trading_name ILIKE $2 ESCAPE '\'`)).
		WithArgs(`%100\%\_pure%`, `%100\%\_pure%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	name := "100%_pure"
	n, err := NewBusinessProfileRepository(db).Count(context.Background(), models.BusinessProfileFilter{Name: &name})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
