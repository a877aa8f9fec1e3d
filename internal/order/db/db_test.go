package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"pos-core/internal/models"
	"pos-core/internal/order/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Hall)(nil),
		(*models.Table)(nil),
		(*models.OrderLine)(nil),
		(*models.Sale)(nil),
		(*models.Customer)(nil),
		(*models.DebtEntry)(nil),
		(*models.Setting)(nil),
	} {
		require.NoError(t, bunDB.ResetModel(ctx, model))
	}

	seed := []interface{}{
		&models.Hall{ID: 1, Name: "Main Hall"},
		&models.Table{ID: 1, HallID: 1, Name: "Table 1", Status: models.TableFree},
		&models.Table{ID: 2, HallID: 1, Name: "Table 2", Status: models.TableFree},
		&models.Customer{ID: 9, Name: "Aziz", Debt: 50},
		&models.Setting{Key: models.SettingNextCheckNumber, Value: "1"},
	}
	for _, row := range seed {
		_, err := bunDB.NewInsert().Model(row).Exec(ctx)
		require.NoError(t, err)
	}

	return &db.DB{Bun: bunDB}
}

func line(name string, price float64, qty int) models.OrderLine {
	return models.OrderLine{ProductName: name, Price: price, Quantity: qty}
}

func counterValue(t *testing.T, d *db.DB) string {
	t.Helper()
	var setting models.Setting
	err := d.Bun.NewSelect().
		Model(&setting).
		Where("key = ?", models.SettingNextCheckNumber).
		Scan(context.Background())
	require.NoError(t, err)
	return setting.Value
}

func TestCheckNumberMintedOncePerOpenOrder(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	r1, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r1.CheckNumber)

	r2, err := d.AddItems(ctx, 1, []models.OrderLine{line("Tea", 5000, 2)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r2.CheckNumber, "second add must reuse the open check number")

	r3, err := d.AddItems(ctx, 2, []models.OrderLine{line("Lagman", 28000, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), r3.CheckNumber, "a different table mints the next number")

	assert.Equal(t, "3", counterValue(t, d))
}

func TestCheckNumberCounterRowMissing(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.Bun.NewDelete().
		Model((*models.Setting)(nil)).
		Where("key = ?", models.SettingNextCheckNumber).
		Exec(ctx)
	require.NoError(t, err)

	receipt, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.CheckNumber)
	assert.Equal(t, "2", counterValue(t, d), "missing counter row is created, not silently skipped")
}

func TestAddItemsAccumulates(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 2)}, nil)
	require.NoError(t, err)

	first, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, first.Status)
	assert.Equal(t, float64(60000), first.TotalAmount)
	require.NotNil(t, first.StartTime)

	_, err = d.AddItems(ctx, 1, []models.OrderLine{line("Tea", 5000, 2), line("Bread", 3000, 1)}, nil)
	require.NoError(t, err)

	second, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(73000), second.TotalAmount)
	require.NotNil(t, second.StartTime)
	assert.Equal(t, first.StartTime.Unix(), second.StartTime.Unix(), "start time is first-write-wins")

	lines, err := d.OpenLines(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestAddItemsUnknownTable(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.AddItems(context.Background(), 99, []models.OrderLine{line("Plov", 30000, 1)}, nil)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddItemsOwnershipAssignment(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	claim := func(models.Table) (int64, string, bool) { return 7, "Carol", true }
	receipt, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, claim)
	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.StaffID)
	assert.Equal(t, "Carol", receipt.StaffName)

	// A later batch that decides not to transfer leaves the owner alone.
	keep := func(snapshot models.Table) (int64, string, bool) {
		return snapshot.StaffID, snapshot.StaffName, false
	}
	receipt, err = d.AddItems(ctx, 1, []models.OrderLine{line("Tea", 5000, 1)}, keep)
	require.NoError(t, err)
	assert.Equal(t, int64(7), receipt.StaffID)
	assert.Equal(t, "Carol", receipt.StaffName)

	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), table.StaffID)
	assert.Equal(t, "Carol", table.StaffName)
}

func TestCheckoutCash(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 2), line("Tea", 5000, 1)}, nil)
	require.NoError(t, err)

	receipt, err := d.Checkout(ctx, db.CheckoutParams{
		TableID:       1,
		Total:         71500,
		Subtotal:      65000,
		Discount:      0,
		PaymentMethod: models.PayCash,
		Lines: []models.LineInput{
			{Name: "Plov", Price: 30000, Quantity: 2},
			{Name: "Tea", Price: 5000, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), receipt.CheckNumber)
	assert.Equal(t, "Table 1", receipt.TableName)

	// The table is back to the free-state invariant.
	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableFree, table.Status)
	assert.Zero(t, table.TotalAmount)
	assert.Zero(t, table.CheckNumber)
	assert.Zero(t, table.StaffID)
	assert.Empty(t, table.StaffName)
	assert.Nil(t, table.StartTime)
	assert.Zero(t, table.Guests)

	lines, err := d.OpenLines(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, lines)

	sale, err := d.GetSale(ctx, receipt.SaleID)
	require.NoError(t, err)
	assert.Equal(t, float64(71500), sale.TotalAmount)
	assert.Equal(t, models.PayCash, sale.PaymentMethod)
	assert.Equal(t, int64(1), sale.CheckNumber)
	assert.Contains(t, sale.ItemsJSON, "Plov")

	// The freed table starts a fresh check on its next order.
	next, err := d.AddItems(ctx, 1, []models.OrderLine{line("Samsa", 8000, 1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.CheckNumber)
}

func TestCheckoutDebt(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, nil)
	require.NoError(t, err)

	customerID := int64(9)
	_, err = d.Checkout(ctx, db.CheckoutParams{
		TableID:       1,
		Total:         30000,
		Subtotal:      30000,
		PaymentMethod: models.PayDebt,
		CustomerID:    &customerID,
	})
	require.NoError(t, err)

	var cust models.Customer
	require.NoError(t, d.Bun.NewSelect().Model(&cust).Where("id = ?", customerID).Scan(ctx))
	assert.Equal(t, float64(50+30000), cust.Debt)

	var entries []models.DebtEntry
	require.NoError(t, d.Bun.NewSelect().Model(&entries).Where("customer_id = ?", customerID).Scan(ctx))
	require.Len(t, entries, 1)
	assert.Equal(t, models.DebtTypeDebt, entries[0].Type)
	assert.Equal(t, float64(30000), entries[0].Amount)
	assert.Contains(t, entries[0].Comment, "check #1")
}

func TestCheckoutDebtUnknownCustomerRollsBack(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	_, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, nil)
	require.NoError(t, err)

	missing := int64(404)
	_, err = d.Checkout(ctx, db.CheckoutParams{
		TableID:       1,
		Total:         30000,
		Subtotal:      30000,
		PaymentMethod: models.PayDebt,
		CustomerID:    &missing,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	// Nothing moved: the table is still open with its lines and check.
	table, err := d.GetTable(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TableOccupied, table.Status)
	assert.Equal(t, int64(1), table.CheckNumber)
	assert.Equal(t, float64(30000), table.TotalAmount)

	lines, err := d.OpenLines(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	count, err := d.Bun.NewSelect().Model((*models.Sale)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCheckoutFreeTable(t *testing.T) {
	d := setupTestDB(t)

	_, err := d.Checkout(context.Background(), db.CheckoutParams{
		TableID:       1,
		Total:         1000,
		Subtotal:      1000,
		PaymentMethod: models.PayCash,
	})
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestListSales(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := d.AddItems(ctx, 1, []models.OrderLine{line("Plov", 30000, 1)}, nil)
		require.NoError(t, err)
		_, err = d.Checkout(ctx, db.CheckoutParams{
			TableID:       1,
			Total:         30000,
			Subtotal:      30000,
			PaymentMethod: models.PayCash,
		})
		require.NoError(t, err)
	}

	sales, err := d.ListSales(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, int64(3), sales[0].CheckNumber, "newest first")
}
