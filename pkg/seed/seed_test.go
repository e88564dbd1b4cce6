package seed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimockr/apimockr/pkg/resource"
	"github.com/apimockr/apimockr/pkg/store"
)

func TestDatasetParsesAndReferencesLineUp(t *testing.T) {
	ds, err := load()
	require.NoError(t, err)

	require.Len(t, ds.Users, 10)
	assert.NotEmpty(t, ds.Posts)
	assert.NotEmpty(t, ds.Todos)
	assert.NotEmpty(t, ds.Comments)

	for _, p := range ds.Posts {
		id, ok := p["userId"].(int)
		require.True(t, ok, "post userId must be an integer: %v", p["userId"])
		assert.GreaterOrEqual(t, id, 1)
		assert.LessOrEqual(t, id, len(ds.Users))
	}
	for _, td := range ds.Todos {
		id, ok := td["userId"].(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, id, 1)
		assert.LessOrEqual(t, id, len(ds.Users))
	}
	for _, c := range ds.Comments {
		id, ok := c["postId"].(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, id, 1)
		assert.LessOrEqual(t, id, len(ds.Posts))
	}
}

func TestSeedRoundTrip(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, Seed(context.Background(), st))

	q := resource.Query{
		Sort: resource.Sort{Field: "id", Dir: "asc"},
		Page: resource.Page{Page: 1, Limit: 100},
	}
	users, err := st.Find(context.Background(), "users", q, nil)
	require.NoError(t, err)
	require.Len(t, users, 10)
	assert.Equal(t, int64(1), users[0]["id"])
	assert.Equal(t, "Leanne Graham", users[0]["name"])

	address, ok := users[0]["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Gwenborough", address["city"])

	n, err := st.Count(context.Background(), "posts", resource.Query{})
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestSeedIsRepeatable(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, Seed(context.Background(), st))
	require.NoError(t, Seed(context.Background(), st))

	q := resource.Query{
		Sort: resource.Sort{Field: "id", Dir: "asc"},
		Page: resource.Page{Page: 1, Limit: 100},
	}
	users, err := st.Find(context.Background(), "users", q, nil)
	require.NoError(t, err)
	require.Len(t, users, 10)
	assert.Equal(t, int64(1), users[0]["id"])

	n, err := st.Count(context.Background(), "comments", resource.Query{})
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}
