package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_DecodesLikeConsumer(t *testing.T) {
	r := &Recorder{}
	ctx := context.Background()

	require.NoError(t, r.Publish(ctx, TopicOrders, "u1", map[string]any{"type": "order_created", "lines": 3}))
	require.NoError(t, r.Publish(ctx, TopicBaskets, "b1", struct {
		Type string `json:"type"`
	}{Type: "basket_line_added"}))

	orders := r.Events(TopicOrders)
	require.Len(t, orders, 1)
	assert.Equal(t, "u1", orders[0].Key)
	assert.Equal(t, "order_created", orders[0].Event["type"])
	assert.EqualValues(t, 3, orders[0].Event["lines"])

	baskets := r.Events(TopicBaskets)
	require.Len(t, baskets, 1)
	assert.Equal(t, "basket_line_added", baskets[0].Event["type"])

	assert.Empty(t, r.Events(TopicUsers))
}

func TestDiscard(t *testing.T) {
	var p Publisher = Discard{}
	require.NoError(t, p.Publish(context.Background(), TopicUsers, "k", map[string]any{}))
	require.NoError(t, p.Close())
}
