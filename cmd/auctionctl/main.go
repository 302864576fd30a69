package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"auctionhouse/internal/cache"
	"auctionhouse/internal/config"
	"auctionhouse/internal/db"
	"auctionhouse/internal/identity"
	"auctionhouse/internal/logger"
	"auctionhouse/internal/repository"
	"auctionhouse/internal/service"
)

const usage = `usage: auctionctl <command> [arguments]

commands:
  sync                              reconcile profiles with IDENTITY_SOURCE
  topup <username> <amount>         add money to a wallet
  publish <slug>                    open the auction of a draft
  bid <slug> <username> <amount>    place a bid
  close <slug>                      sell to the highest bidder
  withdraw <slug>                   end the auction without a sale
  settle --older-than <duration>    close or withdraw auctions published before now-duration
  show <username>                   print wallet, listings and history
`

// app holds the services shared by every command.
type app struct {
	log      *logrus.Logger
	wallet   service.WalletService
	listings service.ListingService
	profiles service.ProfileService
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	store := repository.NewStore(gormDB)
	policy := service.RetryPolicy{Attempts: uint(max(cfg.TxRetryAttempts, 1)), Delay: cfg.TxRetryDelay}
	rules := service.AuctionRules{
		MinStartingPrice:     cfg.MinStartingPrice,
		MinBidIncrement:      cfg.MinBidIncrement,
		DefaultStartingPrice: cfg.DefaultStartingPrice,
	}
	a := &app{
		log:      log,
		wallet:   service.NewWalletService(store, cacheClient, log, policy),
		listings: service.NewListingService(store, cacheClient, log, rules, policy),
		profiles: service.NewProfileService(store, cacheClient, log, policy),
	}

	// Reconciliation runs at every start, before any command touches profiles.
	if cfg.IdentitySource != "" {
		loader := identity.NewLoader(afero.NewOsFs(), nil)
		identities, err := loader.Load(ctx, cfg.IdentitySource)
		if err != nil {
			log.WithError(err).Fatal("load identities")
		}
		if _, err := a.profiles.Reconcile(ctx, identities); err != nil {
			log.WithError(err).Fatal("reconcile profiles")
		}
	}

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		log.WithError(err).WithField("command", os.Args[1]).Fatal("command failed")
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "sync":
		// reconciliation already ran
		return nil
	case "topup":
		return a.topUp(ctx, args)
	case "publish":
		return a.publish(ctx, args)
	case "bid":
		return a.bid(ctx, args)
	case "close":
		return a.close(ctx, args)
	case "withdraw":
		return a.withdraw(ctx, args)
	case "settle":
		return a.settle(ctx, args)
	case "show":
		return a.show(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}
