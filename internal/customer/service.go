// Package customer handles the payment side of the debt ledger. The debt
// side is written by the checkout transaction; both sides keep the same
// invariant: a customer's stored debt equals the signed sum of their
// ledger entries.
package customer

import (
	"context"
	"fmt"
	"time"

	"pos-core/internal/eventbus"
	"pos-core/internal/models"

	"github.com/uptrace/bun"
)

type Notifier interface {
	Publish(kind string, subject int64)
}

type Service struct {
	Bun *bun.DB
	Bus Notifier
}

func NewService(bunDB *bun.DB, bus Notifier) *Service {
	return &Service{Bun: bunDB, Bus: bus}
}

// Debtors lists customers with an outstanding balance.
func (s *Service) Debtors(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	err := s.Bun.NewSelect().
		Model(&customers).
		Where("debt > 0").
		Order("debt DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return customers, nil
}

// DebtHistory returns a customer's ledger, newest first.
func (s *Service) DebtHistory(ctx context.Context, customerID int64) ([]models.DebtEntry, error) {
	var entries []models.DebtEntry
	err := s.Bun.NewSelect().
		Model(&entries).
		Where("customer_id = ?", customerID).
		Order("date DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// PayDebt records a repayment: balance decrease and payment-type ledger
// entry in one transaction.
func (s *Service) PayDebt(ctx context.Context, customerID int64, amount float64, comment string) error {
	if amount <= 0 {
		return fmt.Errorf("payment amount must be positive: %w", models.ErrValidation)
	}

	err := s.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*models.Customer)(nil)).
			Set("debt = debt - ?", amount).
			Where("id = ?", customerID).
			Exec(ctx)
		if err != nil {
			return err
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("customer %d: %w", customerID, models.ErrNotFound)
		}

		entry := &models.DebtEntry{
			CustomerID: customerID,
			Amount:     amount,
			Type:       models.DebtTypePayment,
			Date:       time.Now(),
			Comment:    comment,
		}
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record debt payment: %w", err)
	}

	s.Bus.Publish(eventbus.KindCustomers, customerID)
	return nil
}
