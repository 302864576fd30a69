package service

// Reason explains why a bid cannot be placed. ReasonNone means it can.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotPublished
	ReasonIsOwner
	ReasonBelowStartingPrice
	ReasonBelowMinimumIncrement
	ReasonAlreadyHighestBidder
	ReasonInsufficientFunds
)

var reasonNames = map[Reason]string{
	ReasonNone:                  "none",
	ReasonNotPublished:          "not_published",
	ReasonIsOwner:               "is_owner",
	ReasonBelowStartingPrice:    "below_starting_price",
	ReasonBelowMinimumIncrement: "below_minimum_increment",
	ReasonAlreadyHighestBidder:  "already_highest_bidder",
	ReasonInsufficientFunds:     "insufficient_funds",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}
