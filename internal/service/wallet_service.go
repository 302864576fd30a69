package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"auctionhouse/internal/cache"
	apperrors "auctionhouse/internal/errors"
	"auctionhouse/internal/repository"
)

// WalletService is the money ledger of profiles.
type WalletService interface {
	// AddMoney credits a positive amount and logs the new balance.
	AddMoney(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) error
	// TakeMoney debits amount if the balance covers it, else ErrInsufficientFunds.
	// It writes no audit entry; the caller logs the reason.
	TakeMoney(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	// DisplayMoney returns the available balance and the sum escrowed in outstanding bids.
	DisplayMoney(ctx context.Context, profileID uuid.UUID) (available, escrowed decimal.Decimal, err error)
}

type walletService struct {
	core
}

// NewWalletService creates a new wallet service.
func NewWalletService(store repository.Store, cache *cache.Client, log logrus.FieldLogger, policy RetryPolicy) WalletService {
	return &walletService{core: core{store: store, cache: cache, log: log, policy: policy}}
}

func (s *walletService) AddMoney(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) error {
	if !validAmount(amount) {
		return apperrors.ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		var err error
		balance, err = u.topUp(ctx, profileID, amount)
		return err
	})
	if err != nil {
		return fmt.Errorf("add money: %w", err)
	}

	s.log.WithFields(logrus.Fields{"profile": profileID, "balance": money(balance)}).Info("profile money changed")
	return nil
}

func (s *walletService) TakeMoney(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !validAmount(amount) {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}

	err := s.atomically(ctx, func(ctx context.Context, u *unit) error {
		return u.debit(ctx, profileID, amount)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientFunds) || errors.Is(err, apperrors.ErrProfileNotFound) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("take money: %w", err)
	}
	return amount, nil
}

func (s *walletService) DisplayMoney(ctx context.Context, profileID uuid.UUID) (decimal.Decimal, decimal.Decimal, error) {
	profile, err := s.store.Profiles().FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, decimal.Zero, apperrors.ErrProfileNotFound
		}
		return decimal.Zero, decimal.Zero, fmt.Errorf("get profile: %w", err)
	}

	bids, err := s.store.Bids().ListByBidder(ctx, profileID)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("list bids: %w", err)
	}
	escrowed := decimal.Zero
	for _, bid := range bids {
		escrowed = escrowed.Add(bid.BidValue)
	}
	return profile.Money, escrowed, nil
}

// credit adds amount to a balance without an audit entry and returns the new balance.
func (u *unit) credit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := u.tx.Profiles().Credit(ctx, profileID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, apperrors.ErrProfileNotFound
		}
		return decimal.Zero, fmt.Errorf("credit %s: %w", profileID, err)
	}
	u.touchProfile(profileID)

	profile, err := u.tx.Profiles().FindByID(ctx, profileID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reload %s: %w", profileID, err)
	}
	return profile.Money, nil
}

// topUp credits amount and logs the new balance.
func (u *unit) topUp(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := u.credit(ctx, profileID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if err := u.writeLog(ctx, profileID, moneyAddedEntry(amount, balance)); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// debit takes amount from a balance or fails with ErrInsufficientFunds.
func (u *unit) debit(ctx context.Context, profileID uuid.UUID, amount decimal.Decimal) error {
	ok, err := u.tx.Profiles().Debit(ctx, profileID, amount)
	if err != nil {
		return fmt.Errorf("debit %s: %w", profileID, err)
	}
	if !ok {
		if _, err := u.tx.Profiles().FindByID(ctx, profileID); errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrProfileNotFound
		}
		return apperrors.ErrInsufficientFunds
	}
	u.touchProfile(profileID)
	return nil
}
