package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type snapshot struct {
	Slug  string `json:"slug"`
	Price string `json:"price"`
}

func TestClient_RoundTripAndDelete(t *testing.T) {
	srv := miniredis.RunT(t)
	c := New(srv.Addr(), "", 0)
	defer c.Close()
	ctx := context.Background()

	key := ListingKey("japari-bun")
	c.SetJSON(ctx, key, snapshot{Slug: "japari-bun", Price: "1.60"}, time.Minute)

	var got snapshot
	assert.True(t, c.GetJSON(ctx, key, &got))
	assert.Equal(t, "1.60", got.Price)

	c.Delete(ctx, key)
	assert.False(t, c.GetJSON(ctx, key, &got))
}

func TestClient_FailsSafe(t *testing.T) {
	ctx := context.Background()

	var nilClient *Client
	var dest snapshot
	assert.False(t, nilClient.GetJSON(ctx, "any", &dest))
	nilClient.SetJSON(ctx, "any", dest, time.Minute)
	nilClient.Delete(ctx, "any")
	assert.NoError(t, nilClient.Close())
}

func TestClient_MissOnForeignPayload(t *testing.T) {
	srv := miniredis.RunT(t)
	c := New(srv.Addr(), "", 0)
	defer c.Close()

	key := ProfileKey(uuid.New())
	assert.NoError(t, srv.Set(key, "not json"))

	var dest snapshot
	assert.False(t, c.GetJSON(context.Background(), key, &dest))
}
