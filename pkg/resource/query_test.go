package resource

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateDefaults(t *testing.T) {
	t.Parallel()

	q := Translate(url.Values{}, Posts)

	assert.Equal(t, 1, q.Page.Page)
	assert.Equal(t, 10, q.Page.Limit)
	assert.Equal(t, 0, q.Page.Skip())
	assert.Equal(t, "id", q.Sort.Field)
	assert.Equal(t, "asc", q.Sort.Dir)
	assert.Zero(t, q.Delay)
	assert.Empty(t, q.Filters)
}

func TestTranslatePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		values    url.Values
		wantPage  int
		wantLimit int
		wantSkip  int
	}{
		{
			name:      "plain keys",
			values:    url.Values{"page": {"3"}, "limit": {"5"}},
			wantPage:  3,
			wantLimit: 5,
			wantSkip:  10,
		},
		{
			name:      "underscore keys",
			values:    url.Values{"_page": {"2"}, "_limit": {"20"}},
			wantPage:  2,
			wantLimit: 20,
			wantSkip:  20,
		},
		{
			name:      "plain key wins over underscore",
			values:    url.Values{"page": {"4"}, "_page": {"9"}},
			wantPage:  4,
			wantLimit: 10,
			wantSkip:  30,
		},
		{
			name:      "non-numeric falls back to defaults",
			values:    url.Values{"_page": {"abc"}, "_limit": {"xyz"}},
			wantPage:  1,
			wantLimit: 10,
			wantSkip:  0,
		},
		{
			name:      "negative and zero fall back to defaults",
			values:    url.Values{"_page": {"0"}, "_limit": {"-1"}},
			wantPage:  1,
			wantLimit: 10,
			wantSkip:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			q := Translate(tt.values, Posts)
			assert.Equal(t, tt.wantPage, q.Page.Page)
			assert.Equal(t, tt.wantLimit, q.Page.Limit)
			assert.Equal(t, tt.wantSkip, q.Page.Skip())
		})
	}
}

func TestTranslateSortAndOrder(t *testing.T) {
	t.Parallel()

	q := Translate(url.Values{"_sort": {"title"}, "_order": {"desc"}}, Posts)
	assert.Equal(t, "title", q.Sort.Field)
	assert.Equal(t, "desc", q.Sort.Dir)

	// Unrecognized order passes through untouched; the store decides.
	q = Translate(url.Values{"_order": {"sideways"}}, Posts)
	assert.Equal(t, "sideways", q.Sort.Dir)
}

func TestTranslateDelay(t *testing.T) {
	t.Parallel()

	q := Translate(url.Values{"_delay": {"250"}}, Posts)
	assert.Equal(t, 250*time.Millisecond, q.Delay)

	for _, bad := range []string{"-5", "abc", ""} {
		q := Translate(url.Values{"_delay": {bad}}, Posts)
		assert.Zero(t, q.Delay, "delay %q should fall back to 0", bad)
	}
}

func TestTranslateFilters(t *testing.T) {
	t.Parallel()

	t.Run("exact match with type coercion", func(t *testing.T) {
		t.Parallel()
		q := Translate(url.Values{
			"userId":    {"7"},
			"completed": {"true"},
			"title":     {"Backup database"},
		}, Todos)

		// Sorted by key for determinism.
		require.Len(t, q.Filters, 3)
		assert.Equal(t, Filter{Field: "completed", Op: OpEq, Value: true}, q.Filters[0])
		assert.Equal(t, Filter{Field: "title", Op: OpEq, Value: "Backup database"}, q.Filters[1])
		assert.Equal(t, Filter{Field: "userId", Op: OpEq, Value: int64(7)}, q.Filters[2])
	})

	t.Run("like suffix stripped", func(t *testing.T) {
		t.Parallel()
		q := Translate(url.Values{"title_like": {"web"}}, Posts)

		require.Len(t, q.Filters, 1)
		assert.Equal(t, Filter{Field: "title", Op: OpLike, Value: "web"}, q.Filters[0])
	})

	t.Run("reserved keys never become filters", func(t *testing.T) {
		t.Parallel()
		q := Translate(url.Values{
			"_page": {"2"}, "limit": {"5"}, "_sort": {"id"},
			"_order": {"asc"}, "_delay": {"10"}, "q": {"x"}, "type": {"all"},
		}, Posts)
		assert.Empty(t, q.Filters)
	})

	t.Run("completed false for any non-true value", func(t *testing.T) {
		t.Parallel()
		q := Translate(url.Values{"completed": {"yes"}}, Todos)
		require.Len(t, q.Filters, 1)
		assert.Equal(t, false, q.Filters[0].Value)
	})

	t.Run("unparseable integer kept as raw string", func(t *testing.T) {
		t.Parallel()
		q := Translate(url.Values{"userId": {"abc"}}, Posts)
		require.Len(t, q.Filters, 1)
		assert.Equal(t, "abc", q.Filters[0].Value)
	})
}

func TestTranslateSearch(t *testing.T) {
	t.Parallel()

	t.Run("builds OR group across search fields", func(t *testing.T) {
		t.Parallel()
		q, err := TranslateSearch(url.Values{"q": {" security "}}, Posts)
		require.NoError(t, err)

		require.Len(t, q.Search, 2)
		assert.Equal(t, Filter{Field: "title", Op: OpLike, Value: "security"}, q.Search[0])
		assert.Equal(t, Filter{Field: "body", Op: OpLike, Value: "security"}, q.Search[1])
		assert.Empty(t, q.Filters)
	})

	t.Run("missing q is a client error", func(t *testing.T) {
		t.Parallel()
		_, err := TranslateSearch(url.Values{}, Posts)

		var ce *ClientError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, 400, ce.StatusCode())
	})

	t.Run("blank q is a client error", func(t *testing.T) {
		t.Parallel()
		_, err := TranslateSearch(url.Values{"q": {"   "}}, Posts)
		var ce *ClientError
		require.ErrorAs(t, err, &ce)
	})

	t.Run("pagination applies to search", func(t *testing.T) {
		t.Parallel()
		q, err := TranslateSearch(url.Values{"q": {"go"}, "_page": {"2"}, "_limit": {"5"}}, Posts)
		require.NoError(t, err)
		assert.Equal(t, 2, q.Page.Page)
		assert.Equal(t, 5, q.Page.Limit)
	})
}

func TestSchemaApplyDefaults(t *testing.T) {
	t.Parallel()

	body := Record{"title": "Write tests"}
	out := Todos.ApplyDefaults(body)

	assert.Equal(t, false, out["completed"])
	assert.Equal(t, int64(1), out["userId"])
	assert.Equal(t, "Write tests", out["title"])

	// Provided values win and the input map is untouched.
	out = Todos.ApplyDefaults(Record{"completed": true, "userId": int64(3)})
	assert.Equal(t, true, out["completed"])
	assert.Equal(t, int64(3), out["userId"])
	assert.NotContains(t, body, "completed")
}

func TestSchemaFieldKindOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindInt, Posts.FieldKindOf("id"))
	assert.Equal(t, KindInt, Posts.FieldKindOf("userId"))
	assert.Equal(t, KindBool, Todos.FieldKindOf("completed"))
	assert.Equal(t, KindText, Posts.FieldKindOf("title"))
	assert.Equal(t, KindText, Posts.FieldKindOf("unknown"))
}

func TestSchemaByName(t *testing.T) {
	t.Parallel()

	require.NotNil(t, SchemaByName("posts"))
	assert.Equal(t, "post", SchemaByName("posts").Singular)
	assert.Nil(t, SchemaByName("widgets"))
}
