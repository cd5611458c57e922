package activerecord

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defineOrderItems() (*Type, *Type) {
	orders := Define("Order",
		WithColumns("id", "status"),
		WithLogger(quietLogger())).
		HasMany("items")
	items := Define("Item",
		WithColumns("id", "order_id", "sku"),
		WithLogger(quietLogger()))
	return orders, items
}

func TestSelectStrategy(t *testing.T) {
	assert.Equal(t, strategyJoin, selectStrategy(KindBelongsTo))
	assert.Equal(t, strategyJoin, selectStrategy(KindHasOne))
	assert.Equal(t, strategySeparate, selectStrategy(KindHasMany))
}

func TestHasManyEagerLoadScenario(t *testing.T) {
	// 5 persisted orders with 3 items each load in exactly 2 statements.
	mock := newMockDatasource(t)
	orders, _ := defineOrderItems()

	orderRows := sqlmock.NewRows([]string{"id", "status"})
	for i := 1; i <= 5; i++ {
		orderRows.AddRow(int64(i), "open")
	}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders")).
		WillReturnRows(orderRows)

	itemRows := sqlmock.NewRows([]string{"id", "order_id", "sku"})
	id := int64(0)
	for i := 1; i <= 5; i++ {
		for j := 0; j < 3; j++ {
			id++
			itemRows.AddRow(id, int64(i), fmt.Sprintf("sku-%d", id))
		}
	}
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM items WHERE order_id IN (?, ?, ?, ?, ?)")).
		WithArgs(int64(1), int64(2), int64(3), int64(4), int64(5)).
		WillReturnRows(itemRows)

	records, err := orders.All().Includes("items").Get()
	require.NoError(t, err)
	require.Len(t, records, 5)
	for _, order := range records {
		loaded, ok := order.Loaded("items")
		require.True(t, ok)
		group := loaded.([]*Record)
		require.Len(t, group, 3)
		for _, item := range group {
			assert.Equal(t, order.PrimaryKey(), item.Get("order_id"))
		}
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasManyQueryCountIndependentOfRows(t *testing.T) {
	orders, _ := defineOrderItems()
	for _, n := range []int{1, 10, 1000} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			mock := newMockDatasource(t)

			orderRows := sqlmock.NewRows([]string{"id", "status"})
			itemRows := sqlmock.NewRows([]string{"id", "order_id", "sku"})
			for i := 1; i <= n; i++ {
				orderRows.AddRow(int64(i), "open")
				itemRows.AddRow(int64(i), int64(i), "sku")
			}
			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders")).
				WillReturnRows(orderRows)
			mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM items WHERE order_id IN (")).
				WillReturnRows(itemRows)

			records, err := orders.All().Includes("items").Get()
			require.NoError(t, err)
			require.Len(t, records, n)

			// Exactly the two expected statements ran, whatever n is.
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestNestedEagerLoadUsesOneQueryPerSegment(t *testing.T) {
	mock := newMockDatasource(t)
	users := Define("User",
		WithColumns("id", "name"),
		WithLogger(quietLogger())).
		HasMany("posts")
	Define("Post",
		WithColumns("id", "user_id", "title"),
		WithLogger(quietLogger())).
		HasMany("comments")
	Define("Comment",
		WithColumns("id", "post_id", "body"),
		WithLogger(quietLogger()))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Alice").
			AddRow(int64(2), "Bob"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN (?, ?)")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(int64(10), int64(1), "first").
			AddRow(int64(11), int64(1), "second").
			AddRow(int64(12), int64(2), "third"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM comments WHERE post_id IN (?, ?, ?)")).
		WithArgs(int64(10), int64(11), int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "body"}).
			AddRow(int64(100), int64(10), "nice").
			AddRow(int64(101), int64(12), "agreed"))

	records, err := users.All().Includes("posts.comments").Get()
	require.NoError(t, err)
	require.Len(t, records, 2)

	posts, err := records[0].RelatedMany("posts")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	comments, err := posts[0].RelatedMany("comments")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice", comments[0].Get("body"))

	// Leaf posts without comments carry an empty, loaded group.
	empty, ok := posts[1].Loaded("comments")
	require.True(t, ok)
	assert.Empty(t, empty.([]*Record))

	// 3 statements for 2 path segments plus the primary query.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedFirstSegmentQueriedOnce(t *testing.T) {
	// Two nested paths through "posts" share the posts query: one statement
	// per distinct segment, four in total.
	mock := newMockDatasource(t)
	users := Define("User",
		WithColumns("id", "name"),
		WithLogger(quietLogger())).
		HasMany("posts")
	Define("Post",
		WithColumns("id", "user_id", "title"),
		WithLogger(quietLogger())).
		HasMany("comments").
		HasMany("likes")
	Define("Comment",
		WithColumns("id", "post_id", "body"),
		WithLogger(quietLogger()))
	Define("Like",
		WithColumns("id", "post_id"),
		WithLogger(quietLogger()))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Alice"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts WHERE user_id IN (?)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "title"}).
			AddRow(int64(10), int64(1), "first"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM comments WHERE post_id IN (?)")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id", "body"}).
			AddRow(int64(100), int64(10), "nice"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM likes WHERE post_id IN (?)")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "post_id"}).
			AddRow(int64(200), int64(10)))

	records, err := users.All().Includes("posts.comments", "posts.likes").Get()
	require.NoError(t, err)
	require.Len(t, records, 1)

	posts, err := records[0].RelatedMany("posts")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	comments, err := posts[0].RelatedMany("comments")
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	likes, err := posts[0].RelatedMany("likes")
	require.NoError(t, err)
	assert.Len(t, likes, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateIncludeQueriedOnce(t *testing.T) {
	mock := newMockDatasource(t)
	orders, _ := defineOrderItems()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow(int64(1), "open"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM items WHERE order_id IN (?)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "sku"}).
			AddRow(int64(10), int64(1), "a"))

	records, err := orders.All().Includes("items", "items").Get()
	require.NoError(t, err)
	require.Len(t, records, 1)

	group, err := records[0].RelatedMany("items")
	require.NoError(t, err)
	assert.Len(t, group, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func defineAuthorPosts() (*Type, *Type) {
	authors := Define("Author",
		WithColumns("id", "name"),
		WithLogger(quietLogger()))
	posts := Define("Post",
		WithColumns("id", "title", "author_id"),
		WithLogger(quietLogger())).
		BelongsTo("author")
	return authors, posts
}

func TestBelongsToJoinScenario(t *testing.T) {
	// A forced join loads posts and their authors in one statement with a
	// single LEFT OUTER JOIN.
	mock := newMockDatasource(t)
	_, posts := defineAuthorPosts()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT posts.*, authors.id AS authors__id, authors.name AS authors__name"+
			" FROM posts LEFT OUTER JOIN authors ON authors.id = posts.author_id")).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "author_id", "authors__id", "authors__name"}).
			AddRow(int64(1), "Hello", int64(10), int64(10), "Ann").
			AddRow(int64(2), "Orphan", nil, nil, nil))

	records, err := posts.All().Joins("author").Get()
	require.NoError(t, err)
	require.Len(t, records, 2)

	author, err := records[0].RelatedOne("author")
	require.NoError(t, err)
	require.NotNil(t, author)
	assert.Equal(t, "Ann", author.Get("name"))

	// The missing author is cached as absent, not re-queried.
	_, ok := records[1].Loaded("author")
	assert.True(t, ok)
	orphan, err := records[1].RelatedOne("author")
	require.NoError(t, err)
	assert.Nil(t, orphan)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIncludesAutoSelectsJoinForBelongsTo(t *testing.T) {
	mock := newMockDatasource(t)
	_, posts := defineAuthorPosts()

	mock.ExpectQuery("LEFT OUTER JOIN authors").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "title", "author_id", "authors__id", "authors__name"}).
			AddRow(int64(1), "Hello", int64(10), int64(10), "Ann"))

	records, err := posts.All().Includes("author").Get()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreloadForcesSeparateStrategy(t *testing.T) {
	mock := newMockDatasource(t)
	_, posts := defineAuthorPosts()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM posts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id"}).
			AddRow(int64(1), "Hello", int64(10)).
			AddRow(int64(2), "World", int64(10)).
			AddRow(int64(3), "Again", int64(20)))

	// Distinct foreign-key values only: two posts share an author.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM authors WHERE id IN (?, ?)")).
		WithArgs(int64(10), int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(10), "Ann").
			AddRow(int64(20), "Ben"))

	records, err := posts.All().Preload("author").Get()
	require.NoError(t, err)
	require.Len(t, records, 3)

	first, err := records[0].RelatedOne("author")
	require.NoError(t, err)
	assert.Equal(t, "Ann", first.Get("name"))
	third, err := records[2].RelatedOne("author")
	require.NoError(t, err)
	assert.Equal(t, "Ben", third.Get("name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasOneJoin(t *testing.T) {
	mock := newMockDatasource(t)
	users := Define("User",
		WithColumns("id", "name"),
		WithLogger(quietLogger())).
		HasOne("profile")
	Define("Profile",
		WithColumns("id", "user_id", "bio"),
		WithLogger(quietLogger()))

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT users.*, profiles.id AS profiles__id, profiles.user_id AS profiles__user_id,"+
			" profiles.bio AS profiles__bio"+
			" FROM users LEFT OUTER JOIN profiles ON profiles.user_id = users.id")).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "name", "profiles__id", "profiles__user_id", "profiles__bio"}).
			AddRow(int64(1), "Alice", int64(7), int64(1), "hi"))

	records, err := users.All().Includes("profile").Get()
	require.NoError(t, err)
	require.Len(t, records, 1)

	profile, err := records[0].RelatedOne("profile")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Equal(t, "hi", profile.Get("bio"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForcedHasManyJoinCollapsesDuplicatedParents(t *testing.T) {
	mock := newMockDatasource(t)
	orders, _ := defineOrderItems()

	mock.ExpectQuery("LEFT OUTER JOIN items ON items.order_id = orders.id").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "status", "items__id", "items__order_id", "items__sku"}).
			AddRow(int64(1), "open", int64(10), int64(1), "a").
			AddRow(int64(1), "open", int64(11), int64(1), "b").
			AddRow(int64(2), "open", nil, nil, nil))

	records, err := orders.All().Joins("items").Get()
	require.NoError(t, err)
	require.Len(t, records, 2)

	first, err := records[0].RelatedMany("items")
	require.NoError(t, err)
	assert.Len(t, first, 2)
	second, err := records[1].RelatedMany("items")
	require.NoError(t, err)
	assert.Empty(t, second)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidRelationshipFailsBeforeSQL(t *testing.T) {
	mock := newMockDatasource(t)
	orders, _ := defineOrderItems()

	_, err := orders.All().Includes("bogus").Get()
	require.ErrorIs(t, err, ErrInvalidRelationship)
	assert.Contains(t, err.Error(), "items")

	// Validation happened before any statement was issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLazyRelatedLoadsOnceAndCaches(t *testing.T) {
	mock := newMockDatasource(t)
	orders, _ := defineOrderItems()

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT * FROM items WHERE order_id IN (?)")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "sku"}).
			AddRow(int64(10), int64(1), "a"))

	order := orders.hydrate(Row{"id": int64(1), "status": "open"})

	_, loaded := order.Loaded("items")
	assert.False(t, loaded)

	group, err := order.RelatedMany("items")
	require.NoError(t, err)
	require.Len(t, group, 1)

	// Second access hits the cache; no further statements.
	again, err := order.RelatedMany("items")
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
