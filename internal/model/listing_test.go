package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestListing_StateAndPrice(t *testing.T) {
	owner := uuid.New()
	l := Listing{StartingPrice: decimal.NewFromInt(1), OwnerID: owner}

	assert.Equal(t, ListingStateDraft, l.State())
	assert.True(t, l.CurrentPrice().Equal(decimal.NewFromInt(1)))
	assert.True(t, l.OwnedBy(owner))
	assert.False(t, l.OwnedBy(uuid.New()))

	now := time.Now()
	l.IsActive = true
	l.DatePublished = &now
	l.HighestBid = decimal.NullDecimal{Decimal: decimal.RequireFromString("1.6"), Valid: true}
	assert.Equal(t, ListingStatePublished, l.State())
	assert.True(t, l.CurrentPrice().Equal(decimal.RequireFromString("1.6")))
}

func TestBeforeCreate_KeepsPresetID(t *testing.T) {
	id := uuid.New()
	p := Profile{ID: id}
	assert.NoError(t, p.BeforeCreate(nil))
	assert.Equal(t, id, p.ID)

	var l Listing
	assert.NoError(t, l.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, l.ID)
}
