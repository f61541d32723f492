package semsearch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/semsearch/ai/mock"
	"github.com/poiesic/semsearch/core"
	"github.com/poiesic/semsearch/index"
	"github.com/poiesic/semsearch/search"
)

var emojiItems = []index.Item{
	{Identifier: "📣", Content: "📣 megaphone shout announce loud"},
	{Identifier: "🔇", Content: "🔇 muted speaker silence quiet"},
	{Identifier: "🐕", Content: "🐕 dog pet bark animal"},
	{Identifier: "🌧️", Content: "🌧️ rain cloud weather storm"},
	{Identifier: "🍕", Content: "🍕 pizza slice food cheese"},
	{Identifier: "🚲", Content: "🚲 bicycle ride wheels commute"},
	{Identifier: "🎻", Content: "🎻 violin strings music orchestra"},
	{Identifier: "🧊", Content: "🧊 ice cube cold frozen"},
	{Identifier: "🔭", Content: "🔭 telescope stars astronomy night"},
	{Identifier: "🧵", Content: "🧵 thread sewing needle fabric"},
	{Identifier: "⛵", Content: "⛵ sailboat wind sea voyage"},
	{Identifier: "🕯️", Content: "🕯️ candle flame wax light"},
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(WithEmbedder(mock.NewTokenEmbedder()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}

func TestClientIndexAndSearch(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Index(ctx, emojiItems))

	results, err := client.Search(ctx, core.SearchQuery{
		Text:           "shout",
		MatchThreshold: 0.3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), core.DefaultLimit)

	identifiers := make([]string, 0, len(results))
	for _, result := range results {
		identifiers = append(identifiers, result.Identifier)
	}
	assert.Contains(t, identifiers, "📣")
	assert.Equal(t, "📣", results[0].Identifier)
}

func TestClientSearchEmptyStore(t *testing.T) {
	client := newTestClient(t)

	results, err := client.Search(context.Background(), core.SearchQuery{
		Text:           "anything",
		MatchThreshold: 0.3,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClientIndexEmptyItems(t *testing.T) {
	client := newTestClient(t)

	err := client.Index(context.Background(), nil)
	assert.ErrorIs(t, err, index.ErrNoItems)
}

func TestClientStoreLoadsOnce(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	first, err := client.Store(ctx)
	require.NoError(t, err)

	second, err := client.Store(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestClientCloseBeforeStoreLoad(t *testing.T) {
	client, err := NewClient(WithEmbedder(mock.NewEmbedder()))
	require.NoError(t, err)

	require.NoError(t, client.Close())

	_, err = client.Store(context.Background())
	assert.Error(t, err)
}

func TestClientSession(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Index(ctx, emojiItems))

	session, err := client.NewSession(
		search.WithDebounceDelay(10*time.Millisecond),
		search.WithMatchThreshold(0.3),
	)
	require.NoError(t, err)
	defer session.Destroy()

	session.Initialize(ctx)

	assert.Eventually(t, func() bool {
		return session.State().ModelReady
	}, 2*time.Second, 10*time.Millisecond)

	session.Classify("shout")

	assert.Eventually(t, func() bool {
		state := session.State()
		return !state.IsSearching && len(state.Matched) > 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, session.State().Matched, "📣")
}
