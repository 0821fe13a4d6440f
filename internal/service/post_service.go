package service

import (
	"context"
	"log/slog"
	"strings"

	"ripple/internal/cache"
	"ripple/internal/middleware"
	"ripple/internal/models"
	"ripple/internal/repository"
)

// ImageRemover deletes a stored upload by name. Satisfied by UploadService.
type ImageRemover interface {
	Remove(name string) error
}

// PostService implements post mutations guarded by ownership checks, the
// like toggle, and feed reads.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
	uploads  ImageRemover
}

type CreatePostInput struct {
	UserID  uint
	Content string
	Image   string
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	uploads ImageRemover,
) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
		uploads:  uploads,
	}
}

// CreatePost validates and stores a new post. A post must carry text or an
// image; an empty post is rejected before anything is written.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && in.Image == "" {
		return nil, models.NewValidationError("Post must contain text or an image")
	}

	const maxContentLen = 10000
	if len(content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}

	// The token only proves the identity existed at issuance; the account may
	// be gone by now.
	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Content: content,
		Image:   in.Image,
		UserID:  author.ID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// GetFeed returns posts in reverse-chronological order. The anonymous first
// page is served cache-aside; the current user's liked flags are re-applied
// on top of the cached rows.
func (s *PostService) GetFeed(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	if offset == 0 && limit <= 20 {
		posts, err := cache.Aside(ctx, cache.FeedKey, cache.FeedTTL,
			func(ctx context.Context) ([]*models.Post, error) {
				return s.postRepo.List(ctx, limit, offset, 0)
			})
		if err != nil {
			return nil, err
		}

		if currentUserID != 0 && len(posts) > 0 {
			postIDs := make([]uint, len(posts))
			for i, p := range posts {
				postIDs[i] = p.ID
			}

			likedIDs, likedErr := s.postRepo.GetLikedPostIDs(ctx, currentUserID, postIDs)
			if likedErr == nil {
				likedMap := make(map[uint]bool, len(likedIDs))
				for _, id := range likedIDs {
					likedMap[id] = true
				}
				for _, p := range posts {
					p.Liked = likedMap[p.ID]
				}
			}
		}
		return posts, nil
	}

	return s.postRepo.List(ctx, limit, offset, currentUserID)
}

// GetPost returns a single post with like data computed for the given reader.
func (s *PostService) GetPost(ctx context.Context, postID, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, currentUserID)
}

// GetPostForEdit returns a post after verifying the requester owns it.
func (s *PostService) GetPostForEdit(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, post, userID); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePost replaces a post's content; only the owner may edit.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, models.NewValidationError("Post content cannot be empty")
	}

	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeOwner(ctx, post, in.UserID); err != nil {
		return nil, err
	}

	post.Content = content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeletePost removes a post and its stored image; only the owner may delete.
// The image file and the record are two separate steps: a failure in between
// leaves an orphaned file, never a dangling record.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, post, in.UserID); err != nil {
		return err
	}

	if post.Image != "" && s.uploads != nil {
		if rmErr := s.uploads.Remove(post.Image); rmErr != nil {
			middleware.Logger.WarnContext(ctx, "failed to remove post image",
				slog.String("image", post.Image),
				slog.String("error", rmErr.Error()),
			)
		}
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

// ToggleLike flips the given user's membership in the post's likes set and
// returns the updated post. Any authenticated user may like any post.
func (s *PostService) ToggleLike(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, userID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	isLiked, err := s.postRepo.IsLiked(ctx, userID, postID)
	if err != nil {
		return nil, err
	}

	if isLiked {
		if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
			return nil, err
		}
	} else {
		if err := s.postRepo.Like(ctx, userID, postID); err != nil {
			return nil, err
		}
	}

	return s.postRepo.GetByID(ctx, postID, userID)
}

// authorizeOwner resolves the claimed identity against the user store and
// permits the mutation only when the post's author matches exactly.
func (s *PostService) authorizeOwner(ctx context.Context, post *models.Post, userID uint) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		return models.NewUnauthorizedError("You can only modify your own posts")
	}
	return nil
}
