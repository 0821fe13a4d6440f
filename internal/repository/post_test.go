package repository

import (
	"context"
	"testing"
	"time"

	"ripple/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(author).Error)

	t.Run("Create and GetByID", func(t *testing.T) {
		post := &models.Post{Content: "hello", UserID: author.ID}
		require.NoError(t, repo.Create(ctx, post))
		assert.NotZero(t, post.ID)

		got, err := repo.GetByID(ctx, post.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Content)
		assert.Equal(t, author.ID, got.UserID)
		assert.Equal(t, "alice", got.User.Username)
		assert.Zero(t, got.LikesCount)
	})

	t.Run("GetByID unknown post", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 9999, 0)
		require.Error(t, err)
		appErr, ok := err.(*models.AppError)
		require.True(t, ok)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("Update", func(t *testing.T) {
		post := &models.Post{Content: "before", UserID: author.ID}
		require.NoError(t, repo.Create(ctx, post))

		post.Content = "after"
		require.NoError(t, repo.Update(ctx, post))

		got, err := repo.GetByID(ctx, post.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Content)
	})

	t.Run("Delete", func(t *testing.T) {
		post := &models.Post{Content: "doomed", UserID: author.ID}
		require.NoError(t, repo.Create(ctx, post))
		require.NoError(t, repo.Delete(ctx, post.ID))

		_, err := repo.GetByID(ctx, post.ID, 0)
		assert.Error(t, err)
	})
}

func TestPostRepository_ListOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	require.NoError(t, db.Create(author).Error)

	// Insert with explicit timestamps so ordering is deterministic.
	base := time.Now().Add(-time.Hour)
	for i, content := range []string{"oldest", "middle", "newest"} {
		post := &models.Post{Content: content, UserID: author.ID}
		require.NoError(t, db.Create(post).Error)
		require.NoError(t, db.Model(post).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	posts, err := repo.List(ctx, 10, 0, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "newest", posts[0].Content)
	assert.Equal(t, "middle", posts[1].Content)
	assert.Equal(t, "oldest", posts[2].Content)
}

func TestPostRepository_Likes(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := &models.User{Username: "alice", Email: "alice@example.com", Password: "x"}
	bob := &models.User{Username: "bob", Email: "bob@example.com", Password: "x"}
	require.NoError(t, db.Create(alice).Error)
	require.NoError(t, db.Create(bob).Error)

	post := &models.Post{Content: "likeable", UserID: alice.ID}
	require.NoError(t, repo.Create(ctx, post))

	t.Run("Like and IsLiked", func(t *testing.T) {
		liked, err := repo.IsLiked(ctx, bob.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, liked)

		require.NoError(t, repo.Like(ctx, bob.ID, post.ID))

		liked, err = repo.IsLiked(ctx, bob.ID, post.ID)
		require.NoError(t, err)
		assert.True(t, liked)
	})

	t.Run("Duplicate like is a no-op", func(t *testing.T) {
		require.NoError(t, repo.Like(ctx, bob.ID, post.ID))

		got, err := repo.GetByID(ctx, post.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.LikesCount)
		assert.True(t, got.Liked)
	})

	t.Run("Likes count computed per reader", func(t *testing.T) {
		got, err := repo.GetByID(ctx, post.ID, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.LikesCount)
		assert.False(t, got.Liked)
	})

	t.Run("Unlike removes membership", func(t *testing.T) {
		require.NoError(t, repo.Unlike(ctx, bob.ID, post.ID))

		liked, err := repo.IsLiked(ctx, bob.ID, post.ID)
		require.NoError(t, err)
		assert.False(t, liked)

		got, err := repo.GetByID(ctx, post.ID, bob.ID)
		require.NoError(t, err)
		assert.Zero(t, got.LikesCount)
	})

	t.Run("GetLikedPostIDs", func(t *testing.T) {
		other := &models.Post{Content: "second", UserID: alice.ID}
		require.NoError(t, repo.Create(ctx, other))
		require.NoError(t, repo.Like(ctx, bob.ID, other.ID))

		ids, err := repo.GetLikedPostIDs(ctx, bob.ID, []uint{post.ID, other.ID})
		require.NoError(t, err)
		assert.Equal(t, []uint{other.ID}, ids)

		ids, err = repo.GetLikedPostIDs(ctx, bob.ID, nil)
		require.NoError(t, err)
		assert.Nil(t, ids)
	})
}
