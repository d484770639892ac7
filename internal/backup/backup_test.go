package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/models"
	"gitlab.com/itfintrack/fintrack/internal/repository"
)

func setupBackupTest(t *testing.T) (*Service, *audit.Recorder, DB, context.Context) {
	t.Helper()

	tx := database.TestTxBeginner(t)
	recorder := audit.NewRecorder(tx)
	return NewService(tx, recorder), recorder, tx, context.Background()
}

func seedLedger(t *testing.T, db database.PGXDB, ctx context.Context) *models.Income {
	t.Helper()

	user := &models.User{Username: "backup_tester", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, repository.NewUserRepository(db).Create(ctx, user))

	income := &models.Income{
		Amount:      decimal.RequireFromString("900.00"),
		Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Description: "annual budget",
		CreatedBy:   user.ID,
	}
	require.NoError(t, repository.NewIncomeRepository(db).Create(ctx, income))
	return income
}

func TestDumpContainsAllTables(t *testing.T) {
	svc, _, tx, ctx := setupBackupTest(t)
	seedLedger(t, tx, ctx)

	archive, err := svc.Dump(ctx)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, table := range tables {
		require.True(t, names[table+".json"], "missing %s", table)
	}
	require.True(t, names["manifest.json"])
}

func TestRestoreRoundTrip(t *testing.T) {
	svc, recorder, tx, ctx := setupBackupTest(t)
	income := seedLedger(t, tx, ctx)

	archive, err := svc.Dump(ctx)
	require.NoError(t, err)

	// Mutate the data after the dump, then bring the archive back.
	incomes := repository.NewIncomeRepository(tx)
	require.NoError(t, incomes.Delete(ctx, income.ID))

	require.NoError(t, svc.Restore(ctx, archive))

	restored, err := incomes.GetByID(ctx, income.ID)
	require.NoError(t, err)
	require.True(t, restored.Amount.Equal(income.Amount))
	require.Equal(t, "annual budget", restored.Description)

	categories, err := repository.NewCategoryRepository(tx).ListActive(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories, "seeded categories survive the round trip")

	t.Run("restore leaves no audit entries", func(t *testing.T) {
		entries, err := repository.NewAuditLogRepository(tx).ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Empty(t, entries)
	})

	t.Run("suppression is released afterwards", func(t *testing.T) {
		require.False(t, recorder.Suppressed())
	})

	t.Run("sequences moved past restored rows", func(t *testing.T) {
		next := &models.Income{
			Amount:    decimal.RequireFromString("1.00"),
			Date:      time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			CreatedBy: restored.CreatedBy,
		}
		require.NoError(t, incomes.Create(ctx, next))
		require.Greater(t, next.ID, restored.ID)
	})
}

func TestRestoreRejectsGarbage(t *testing.T) {
	svc, recorder, _, ctx := setupBackupTest(t)

	err := svc.Restore(ctx, []byte("not a zip archive"))
	require.Error(t, err)
	require.False(t, recorder.Suppressed(), "failed restore still releases suppression")
}

func TestRestoreFailureRollsBack(t *testing.T) {
	svc, recorder, tx, ctx := setupBackupTest(t)
	income := seedLedger(t, tx, ctx)

	archive, err := svc.Dump(ctx)
	require.NoError(t, err)

	// Corrupt one table's JSON so the load fails partway through.
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range zr.File {
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		if f.Name == "incomes.json" {
			_, err = w.Write([]byte("{broken"))
			require.NoError(t, err)
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	require.NoError(t, zw.Close())

	require.Error(t, svc.Restore(ctx, buf.Bytes()))
	require.False(t, recorder.Suppressed())

	// The original data is untouched.
	restored, err := repository.NewIncomeRepository(tx).GetByID(ctx, income.ID)
	require.NoError(t, err)
	require.Equal(t, "annual budget", restored.Description)
}
