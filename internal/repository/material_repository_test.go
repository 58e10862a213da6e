package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/cojovi/material-pricing-api/internal/models"
)

func newMaterialRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func materialRows(materials ...models.Material) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "location", "manufacturer", "product_category", "distributor", "ticker_symbol", "current_price", "previous_price", "last_updated", "updated_by"})
	for _, m := range materials {
		rows.AddRow(m.ID, m.Name, m.Location, m.Manufacturer, m.ProductCategory, m.Distributor, m.TickerSymbol, m.CurrentPrice, m.PreviousPrice, m.LastUpdated, m.UpdatedBy)
	}
	return rows
}

func TestMaterialRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO materials")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	material := &models.Material{
		Name:            "Timberline HDZ Shingle",
		Location:        "DFW",
		Manufacturer:    "GAF",
		ProductCategory: "Shingle",
		Distributor:     "ABCSupply",
		TickerSymbol:    "ABC",
		CurrentPrice:    118.75,
	}
	require.NoError(t, repo.Create(context.Background(), material))
	require.NotEmpty(t, material.ID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, location, manufacturer")).
		WithArgs(material.ID).
		WillReturnRows(materialRows(*material))

	found, err := repo.FindByID(context.Background(), material.ID)
	require.NoError(t, err)
	require.Equal(t, material.Name, found.Name)
	require.Equal(t, "ABC", found.TickerSymbol)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositorySearchUsesILike(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectQuery("SELECT .+ FROM materials WHERE name ILIKE").
		WithArgs("%shingle%").
		WillReturnRows(materialRows(models.Material{ID: "mat-1", Name: "Shingle A", LastUpdated: time.Now()}))

	materials, err := repo.Search(context.Background(), "shingle", 10)
	require.NoError(t, err)
	require.Len(t, materials, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryFindByNameAndPrice(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("LOWER(name) = LOWER($1) AND current_price = $2")).
		WithArgs("Drip Edge", 12.5).
		WillReturnRows(materialRows(models.Material{ID: "mat-2", Name: "Drip Edge", CurrentPrice: 12.5, LastUpdated: time.Now()}))

	found, err := repo.FindByNameAndPrice(context.Background(), "Drip Edge", 12.5)
	require.NoError(t, err)
	require.Equal(t, "mat-2", found.ID)

	mock.ExpectQuery(regexp.QuoteMeta("LOWER(name) = LOWER($1) AND current_price = $2")).
		WithArgs("Drip Edge", 99.0).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByNameAndPrice(context.Background(), "Drip Edge", 99.0)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdateWithHistoryCommitsBoth(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	oldPrice := 100.0
	material := &models.Material{
		ID:           "mat-1",
		Name:         "Synthetic Underlayment",
		Location:     "HOU",
		Distributor:  "Beacon",
		TickerSymbol: "QXO",
		CurrentPrice: 125.5,
	}
	material.PreviousPrice = &oldPrice
	entry := &models.PriceHistoryEntry{
		OldPrice:      &oldPrice,
		NewPrice:      125.5,
		ChangePercent: 25.5,
		SubmittedBy:   "user-1",
		Status:        models.PriceChangeStatusApproved,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.UpdateWithHistory(context.Background(), material, entry))
	require.Equal(t, "mat-1", entry.MaterialID)
	require.NotEmpty(t, entry.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryUpdateWithHistoryRollsBackOnMissingMaterial(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_history")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materials SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.UpdateWithHistory(context.Background(), &models.Material{ID: "ghost"}, &models.PriceHistoryEntry{NewPrice: 10})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMaterialRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMaterialRepoMock(t)
	defer cleanup()

	repo := NewMaterialRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM materials WHERE id = $1")).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), "ghost"), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
