package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"auctionhouse/internal/model"
)

func (a *app) listing(ctx context.Context, slug string) (*model.Listing, error) {
	return a.listings.GetListing(ctx, slug)
}

func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}

func wantArgs(args []string, n int, names string) error {
	if len(args) != n {
		return fmt.Errorf("expected arguments: %s", names)
	}
	return nil
}

func (a *app) topUp(ctx context.Context, args []string) error {
	if err := wantArgs(args, 2, "<username> <amount>"); err != nil {
		return err
	}
	profile, err := a.profiles.GetProfileByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}
	return a.wallet.AddMoney(ctx, profile.ID, amount)
}

func (a *app) publish(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, "<slug>"); err != nil {
		return err
	}
	l, err := a.listing(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := a.listings.Publish(ctx, l.ID)
	if err != nil {
		return err
	}
	report("publish", l.Slug, ok)
	return nil
}

func (a *app) bid(ctx context.Context, args []string) error {
	if err := wantArgs(args, 3, "<slug> <username> <amount>"); err != nil {
		return err
	}
	l, err := a.listing(ctx, args[0])
	if err != nil {
		return err
	}
	bidder, err := a.profiles.GetProfileByUsername(ctx, args[1])
	if err != nil {
		return err
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return err
	}

	ok, reason, err := a.listings.PlaceBid(ctx, l.ID, bidder.ID, amount)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Printf("bid on %s rejected: %s\n", l.Slug, reason)
		return nil
	}
	fmt.Printf("bid on %s accepted\n", l.Slug)
	return nil
}

func (a *app) close(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, "<slug>"); err != nil {
		return err
	}
	l, err := a.listing(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := a.listings.Close(ctx, l.ID)
	if err != nil {
		return err
	}
	report("close", l.Slug, ok)
	return nil
}

func (a *app) withdraw(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, "<slug>"); err != nil {
		return err
	}
	l, err := a.listing(ctx, args[0])
	if err != nil {
		return err
	}
	ok, err := a.listings.Withdraw(ctx, l.ID, false)
	if err != nil {
		return err
	}
	report("withdraw", l.Slug, ok)
	return nil
}

// settle ends every auction published before the cutoff: sold when it has
// bids, withdrawn otherwise.
func (a *app) settle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("settle", flag.ContinueOnError)
	olderThan := fs.Duration("older-than", 7*24*time.Hour, "settle auctions published longer ago than this")
	workers := fs.Int("workers", 4, "listings settled in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	active, err := a.listings.ActiveListings(ctx, nil)
	if err != nil {
		return err
	}
	cutoff := time.Now().UTC().Add(-*olderThan)

	p := pool.New().WithContext(ctx).WithMaxGoroutines(max(*workers, 1))
	for _, l := range active {
		if l.DatePublished == nil || l.DatePublished.After(cutoff) {
			continue
		}
		p.Go(func(ctx context.Context) error {
			sold, err := a.listings.Close(ctx, l.ID)
			if err != nil {
				return fmt.Errorf("close %s: %w", l.Slug, err)
			}
			if sold {
				a.log.WithField("listing", l.Slug).Info("auction settled: sold")
				return nil
			}
			withdrawn, err := a.listings.Withdraw(ctx, l.ID, false)
			if err != nil {
				return fmt.Errorf("withdraw %s: %w", l.Slug, err)
			}
			a.log.WithFields(logrus.Fields{"listing": l.Slug, "withdrawn": withdrawn}).Info("auction settled: no bids")
			return nil
		})
	}
	return p.Wait()
}

func (a *app) show(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1, "<username>"); err != nil {
		return err
	}
	profile, err := a.profiles.GetProfileByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	available, escrowed, err := a.wallet.DisplayMoney(ctx, profile.ID)
	if err != nil {
		return err
	}
	owned, err := a.profiles.ItemsOwned(ctx, profile.ID)
	if err != nil {
		return err
	}
	logs, err := a.profiles.Logs(ctx, profile.ID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "profile\t%s\n", profile.Username)
	fmt.Fprintf(w, "money\t%s (escrowed %s)\n", available.StringFixed(2), escrowed.StringFixed(2))
	fmt.Fprintln(w)
	for _, l := range owned {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.Slug, l.State(), l.CurrentPrice().StringFixed(2), l.Title)
	}
	fmt.Fprintln(w)
	for _, entry := range logs {
		fmt.Fprintf(w, "%s\t%s\n", entry.Date.Format(time.DateTime), entry.Entry)
	}
	return w.Flush()
}

func report(action, slug string, ok bool) {
	if ok {
		fmt.Printf("%s %s: done\n", action, slug)
		return
	}
	fmt.Printf("%s %s: not allowed in its current state\n", action, slug)
}
