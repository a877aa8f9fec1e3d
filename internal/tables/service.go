// Package tables is hall and table administration: the grid the cashier
// and waiters see. Order state on a table is owned by the order engine;
// this service refuses any change that would orphan open order lines.
package tables

import (
	"context"
	"errors"
	"fmt"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"

	"github.com/uptrace/bun"
)

type Notifier interface {
	Publish(kind string, subject int64)
}

type Service struct {
	Bun   *bun.DB
	Cache *Cache
	Bus   Notifier
}

func NewService(bunDB *bun.DB, cache *Cache, bus Notifier) *Service {
	return &Service{Bun: bunDB, Cache: cache, Bus: bus}
}

func (s *Service) ListHalls(ctx context.Context) ([]models.Hall, error) {
	var halls []models.Hall
	if err := s.Bun.NewSelect().Model(&halls).Order("id").Scan(ctx); err != nil {
		return nil, err
	}
	return halls, nil
}

func (s *Service) AddHall(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("hall has no name: %w", models.ErrValidation)
	}

	hall := &models.Hall{Name: name}
	if _, err := s.Bun.NewInsert().Model(hall).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add hall: %w", err)
	}

	s.notifyTables(ctx)
	return nil
}

// DeleteHall removes a hall and its tables. Refused while any table in
// the hall still has open order lines.
func (s *Service) DeleteHall(ctx context.Context, id int64) error {
	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		open, err := tx.NewSelect().
			Model((*models.OrderLine)(nil)).
			Join("JOIN tables AS t ON t.id = order_line.table_id").
			Where("t.hall_id = ?", id).
			Count(ctx)
		if err != nil {
			return err
		}
		if open > 0 {
			return fmt.Errorf("hall %d has tables with open orders: %w", id, models.ErrInvalidState)
		}

		if _, err := tx.NewDelete().Model((*models.Table)(nil)).Where("hall_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.Hall)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
	if err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			return err
		}
		return fmt.Errorf("failed to delete hall: %w", err)
	}

	s.notifyTables(ctx)
	return nil
}

// ListTables returns the full grid, cache-aside.
func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	if cached, ok := s.Cache.Get(ctx); ok {
		return cached, nil
	}

	var tables []models.Table
	if err := s.Bun.NewSelect().Model(&tables).Order("id").Scan(ctx); err != nil {
		return nil, err
	}

	s.Cache.Set(ctx, tables)
	return tables, nil
}

func (s *Service) ListTablesByHall(ctx context.Context, hallID int64) ([]models.Table, error) {
	var tables []models.Table
	err := s.Bun.NewSelect().
		Model(&tables).
		Where("hall_id = ?", hallID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (s *Service) AddTable(ctx context.Context, hallID int64, name string) error {
	if name == "" {
		return fmt.Errorf("table has no name: %w", models.ErrValidation)
	}

	exists, err := s.Bun.NewSelect().
		Model((*models.Hall)(nil)).
		Where("id = ?", hallID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("hall %d: %w", hallID, models.ErrNotFound)
	}

	table := &models.Table{HallID: hallID, Name: name, Status: models.TableFree}
	if _, err := s.Bun.NewInsert().Model(table).Exec(ctx); err != nil {
		return fmt.Errorf("failed to add table: %w", err)
	}

	s.notifyTables(ctx)
	return nil
}

// DeleteTable removes a table. Refused while it has open order lines.
func (s *Service) DeleteTable(ctx context.Context, id int64) error {
	open, err := s.openLineCount(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("table %d has an open order: %w", id, models.ErrInvalidState)
	}

	_, err = s.Bun.NewDelete().Model((*models.Table)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}

	s.notifyTables(ctx)
	return nil
}

// UpdateStatus changes occupancy and guest count from the cashier's grid.
// Freeing a table this way is only allowed when it has no open lines;
// the checkout transaction is the path that frees a table with an order.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string, guests int) error {
	switch status {
	case models.TableFree, models.TableOccupied, models.TablePayment:
	default:
		return fmt.Errorf("unknown table status %q: %w", status, models.ErrValidation)
	}
	if guests < 0 {
		return fmt.Errorf("negative guest count: %w", models.ErrValidation)
	}

	if status == models.TableFree {
		return s.CloseTable(ctx, id)
	}

	res, err := s.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", status).
		Set("guests = ?", guests).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update table: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("table %d: %w", id, models.ErrNotFound)
	}

	s.notifyTables(ctx)
	return nil
}

// CloseTable resets a lineless table to the free invariant: no guests, no
// start time, zero total, no check number, no owner.
func (s *Service) CloseTable(ctx context.Context, id int64) error {
	open, err := s.openLineCount(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return fmt.Errorf("table %d has an open order, check it out instead: %w", id, models.ErrInvalidState)
	}

	res, err := s.Bun.NewUpdate().
		Model((*models.Table)(nil)).
		Set("status = ?", models.TableFree).
		Set("guests = 0").
		Set("start_time = NULL").
		Set("total_amount = 0").
		Set("check_number = 0").
		Set("staff_id = 0").
		Set("staff_name = NULL").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to close table: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("table %d: %w", id, models.ErrNotFound)
	}

	s.notifyTables(ctx)
	return nil
}

func (s *Service) openLineCount(ctx context.Context, tableID int64) (int, error) {
	count, err := s.Bun.NewSelect().
		Model((*models.OrderLine)(nil)).
		Where("table_id = ?", tableID).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Service) notifyTables(ctx context.Context) {
	s.Cache.Invalidate(ctx)
	s.Bus.Publish(eventbus.KindTables, 0)
}
