package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Audit entries shown in a profile's history.
const (
	entryRegistration = "Date of your registration."
	entryMoneyAdded   = "Wallet topped up with %s coins. Balance: %s."
	entryNewListing   = "The item [%s] has been added to your listings."
	entryPublished    = "You have created an auction [%s]."
	entryNewBid       = "Made a bid on [%s]. Value: %s."
	entryWithdrawn    = "You have withdrawn [%s] from the auction."
	entryYouLost      = "You lost the auction [%s]. Refund %s coins."
	entryOwnerRemoved = "The owner removed the lot [%s] from the auction. Refund %s coins."
	entryItemSold     = "You closed the auction [%s]. The winner is %s."
	entryYouWon       = "The listing [%s] has been taken into possession. Price: %s."
)

func moneyAddedEntry(amount, balance decimal.Decimal) string {
	return fmt.Sprintf(entryMoneyAdded, money(amount), money(balance))
}

func newListingEntry(title string) string { return fmt.Sprintf(entryNewListing, title) }
func publishedEntry(title string) string  { return fmt.Sprintf(entryPublished, title) }
func withdrawnEntry(title string) string  { return fmt.Sprintf(entryWithdrawn, title) }

func newBidEntry(title string, value decimal.Decimal) string {
	return fmt.Sprintf(entryNewBid, title, money(value))
}

// refundEntry tells a bidder why the escrow came back.
func refundEntry(title string, value decimal.Decimal, itemSold bool) string {
	if itemSold {
		return fmt.Sprintf(entryYouLost, title, money(value))
	}
	return fmt.Sprintf(entryOwnerRemoved, title, money(value))
}

func itemSoldEntry(title, winner string) string { return fmt.Sprintf(entryItemSold, title, winner) }

func youWonEntry(title string, price decimal.Decimal) string {
	return fmt.Sprintf(entryYouWon, title, money(price))
}
