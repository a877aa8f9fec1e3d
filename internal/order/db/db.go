package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"pos-core/internal/models"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type DB struct {
	Bun *bun.DB
}

// AssignFunc decides table ownership from the snapshot read inside the
// add-items transaction. A nil AssignFunc leaves ownership untouched
// (the desktop single-item path).
type AssignFunc func(snapshot models.Table) (staffID int64, staffName string, transfer bool)

// AddReceipt reports the state the add-items transaction committed, for
// post-commit ticket dispatch.
type AddReceipt struct {
	TableID     int64
	TableName   string
	CheckNumber int64
	StaffID     int64
	StaffName   string
	Total       float64
}

// CheckoutParams carries the caller-supplied totals for a checkout. Lines
// are the client's view of the order and are serialized into the sale
// record as-is.
type CheckoutParams struct {
	TableID       int64
	Total         float64
	Subtotal      float64
	Discount      float64
	PaymentMethod string
	CustomerID    *int64
	Lines         []models.LineInput
}

// CheckoutReceipt is the snapshot taken before the table was reset.
type CheckoutReceipt struct {
	SaleID      int64
	TableID     int64
	TableName   string
	CheckNumber int64
	StaffName   string
	Guests      int
}

func (d *DB) GetTable(ctx context.Context, id int64) (*models.Table, error) {
	var table models.Table
	err := d.Bun.NewSelect().
		Model(&table).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("table %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// OpenLines returns the table's currently open order lines.
func (d *DB) OpenLines(ctx context.Context, tableID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := d.Bun.NewSelect().
		Model(&lines).
		Where("table_id = ?", tableID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// AddItems appends the batch to the table's open order and updates the
// table row, all in one transaction: check-number ensure, the line
// inserts, the running-total accumulation and the ownership write either
// all land or none do.
func (d *DB) AddItems(ctx context.Context, tableID int64, lines []models.OrderLine, assign AssignFunc) (*AddReceipt, error) {
	var receipt AddReceipt

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var table models.Table
		err := d.rowLock(tx.NewSelect().
			Model(&table).
			Where("id = ?", tableID).
			Limit(1)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("table %d: %w", tableID, models.ErrNotFound)
		}
		if err != nil {
			return err
		}

		checkNumber, err := ensureCheckNumber(ctx, tx, &table)
		if err != nil {
			return err
		}

		var additional float64
		for i := range lines {
			lines[i].TableID = tableID
			additional += lines[i].Price * float64(lines[i].Quantity)
		}
		if _, err := tx.NewInsert().Model(&lines).Exec(ctx); err != nil {
			return err
		}

		table.TotalAmount += additional
		if assign != nil {
			if staffID, staffName, transfer := assign(table); transfer {
				table.StaffID = staffID
				table.StaffName = staffName
			}
		}

		// The total is bumped relative to the stored value and start_time is
		// first-write-wins, so a concurrent add to the same table cannot
		// overwrite either with a stale snapshot.
		_, err = tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("status = ?", models.TableOccupied).
			Set("total_amount = total_amount + ?", additional).
			Set("start_time = COALESCE(start_time, ?)", time.Now()).
			Set("check_number = ?", table.CheckNumber).
			Set("staff_id = ?", table.StaffID).
			Set("staff_name = ?", table.StaffName).
			Where("id = ?", tableID).
			Exec(ctx)
		if err != nil {
			return err
		}

		receipt = AddReceipt{
			TableID:     tableID,
			TableName:   table.Name,
			CheckNumber: checkNumber,
			StaffID:     table.StaffID,
			StaffName:   table.StaffName,
			Total:       table.TotalAmount,
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return &receipt, nil
}

// ensureCheckNumber returns the table's active check number, minting one
// from the settings counter when the table has none. Idempotent for an
// open order: repeated adds never mint a second number. Must run inside
// the same transaction as the line inserts it accompanies.
//
// The bump is a single upsert that increments the stored value in place
// and returns the result, so two transactions minting at the same time
// can never both read the same counter state: the second one increments
// whatever the first committed.
func ensureCheckNumber(ctx context.Context, tx bun.Tx, table *models.Table) (int64, error) {
	if table.CheckNumber > 0 {
		return table.CheckNumber, nil
	}

	counter := &models.Setting{
		Key:   models.SettingNextCheckNumber,
		Value: "2",
	}
	_, err := tx.NewInsert().
		Model(counter).
		On("CONFLICT (key) DO UPDATE").
		Set("value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)").
		Returning("value").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	next, err := strconv.ParseInt(counter.Value, 10, 64)
	if err != nil || next < 2 {
		return 0, fmt.Errorf("check counter holds %q, expected a positive number", counter.Value)
	}

	table.CheckNumber = next - 1
	return next - 1, nil
}

// rowLock makes the select take the row's write lock on dialects that
// support it. sqlite serializes writers on its own.
func (d *DB) rowLock(q *bun.SelectQuery) *bun.SelectQuery {
	if d.Bun.Dialect().Name() == dialect.PG {
		return q.For("UPDATE")
	}
	return q
}

// Checkout closes the table's open order into an immutable sale: snapshot
// the check number, owner and guest count, insert the sale, apply the debt
// branch when paying on credit, delete the order lines and reset the table
// to free. All-or-nothing; a failure at any step leaves the table exactly
// as it was.
func (d *DB) Checkout(ctx context.Context, params CheckoutParams) (*CheckoutReceipt, error) {
	var receipt CheckoutReceipt

	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var table models.Table
		err := d.rowLock(tx.NewSelect().
			Model(&table).
			Where("id = ?", params.TableID).
			Limit(1)).
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("table %d: %w", params.TableID, models.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if table.Status == models.TableFree {
			return fmt.Errorf("table %d is not occupied: %w", params.TableID, models.ErrInvalidState)
		}

		itemsJSON, err := json.Marshal(params.Lines)
		if err != nil {
			return err
		}

		staffName := table.StaffName
		if staffName == "" {
			staffName = "counter staff"
		}

		sale := &models.Sale{
			Date:          time.Now(),
			TotalAmount:   params.Total,
			Subtotal:      params.Subtotal,
			Discount:      params.Discount,
			PaymentMethod: params.PaymentMethod,
			CustomerID:    params.CustomerID,
			ItemsJSON:     string(itemsJSON),
			CheckNumber:   table.CheckNumber,
			StaffName:     staffName,
			Guests:        table.Guests,
		}
		if _, err := tx.NewInsert().Model(sale).Exec(ctx); err != nil {
			return err
		}

		if params.PaymentMethod == models.PayDebt && params.CustomerID != nil {
			res, err := tx.NewUpdate().
				Model((*models.Customer)(nil)).
				Set("debt = debt + ?", params.Total).
				Where("id = ?", *params.CustomerID).
				Exec(ctx)
			if err != nil {
				return err
			}
			if affected, _ := res.RowsAffected(); affected == 0 {
				return fmt.Errorf("customer %d: %w", *params.CustomerID, models.ErrNotFound)
			}

			entry := &models.DebtEntry{
				CustomerID: *params.CustomerID,
				Amount:     params.Total,
				Type:       models.DebtTypeDebt,
				Date:       sale.Date,
				Comment:    fmt.Sprintf("Sale (check #%d, %s)", table.CheckNumber, staffName),
			}
			if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
				return err
			}
		}

		_, err = tx.NewDelete().
			Model((*models.OrderLine)(nil)).
			Where("table_id = ?", params.TableID).
			Exec(ctx)
		if err != nil {
			return err
		}

		_, err = tx.NewUpdate().
			Model((*models.Table)(nil)).
			Set("status = ?", models.TableFree).
			Set("guests = 0").
			Set("start_time = NULL").
			Set("total_amount = 0").
			Set("check_number = 0").
			Set("staff_id = 0").
			Set("staff_name = NULL").
			Where("id = ?", params.TableID).
			Exec(ctx)
		if err != nil {
			return err
		}

		receipt = CheckoutReceipt{
			SaleID:      sale.ID,
			TableID:     params.TableID,
			TableName:   table.Name,
			CheckNumber: table.CheckNumber,
			StaffName:   staffName,
			Guests:      table.Guests,
		}
		return nil
	})
	if err != nil {
		return nil, txError(err)
	}
	return &receipt, nil
}

// ListSales returns sales in the given range, newest first. Without a
// range, the latest 100.
func (d *DB) ListSales(ctx context.Context, from, to *time.Time) ([]models.Sale, error) {
	var sales []models.Sale

	q := d.Bun.NewSelect().Model(&sales).Order("date DESC")
	if from != nil && to != nil {
		q = q.Where("date >= ?", *from).Where("date <= ?", *to)
	} else {
		q = q.Limit(100)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return sales, nil
}

// GetSale loads a single completed sale.
func (d *DB) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	sale := new(models.Sale)
	err := d.Bun.NewSelect().Model(sale).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// txError keeps the taxonomy errors as-is and tags everything else as a
// transaction failure.
func txError(err error) error {
	if errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrInvalidState) ||
		errors.Is(err, models.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrTransaction, err)
}
