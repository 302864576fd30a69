package service

import (
	"github.com/shopspring/decimal"

	"auctionhouse/internal/model"
)

// AuctionRules are the pricing rules of the auction.
type AuctionRules struct {
	// MinStartingPrice is the lowest starting price a listing can be published with.
	MinStartingPrice decimal.Decimal
	// MinBidIncrement is the fraction a bid must exceed the current highest bid by.
	MinBidIncrement decimal.Decimal
	// DefaultStartingPrice is assigned to a listing when it changes hands.
	DefaultStartingPrice decimal.Decimal
}

// DefaultAuctionRules returns a starting floor of 1 and a 5% increment.
func DefaultAuctionRules() AuctionRules {
	return AuctionRules{
		MinStartingPrice:     decimal.NewFromInt(1),
		MinBidIncrement:      decimal.RequireFromString("0.05"),
		DefaultStartingPrice: decimal.NewFromInt(1),
	}
}

// incrementOver is the unrounded lowest amount allowed over a standing bid.
func (r AuctionRules) incrementOver(highest decimal.Decimal) decimal.Decimal {
	return highest.Mul(decimal.NewFromInt(1).Add(r.MinBidIncrement))
}

// accepts reports whether amount beats the listing's price. The first bid
// only has to exceed the starting price; later bids must also clear the increment.
func (r AuctionRules) accepts(listing *model.Listing, top *model.Bid, amount decimal.Decimal) Reason {
	if top == nil {
		if amount.LessThanOrEqual(listing.StartingPrice) {
			return ReasonBelowStartingPrice
		}
		return ReasonNone
	}
	if amount.LessThanOrEqual(top.BidValue) || amount.LessThan(r.incrementOver(top.BidValue)) {
		return ReasonBelowMinimumIncrement
	}
	return ReasonNone
}

// affordable reports whether money could cover the cheapest acceptable bid.
func (r AuctionRules) affordable(listing *model.Listing, top *model.Bid, money decimal.Decimal) bool {
	if top == nil {
		return money.GreaterThan(listing.StartingPrice)
	}
	return money.GreaterThanOrEqual(r.incrementOver(top.BidValue))
}

// validAmount rejects non-positive amounts and sub-cent precision.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}
