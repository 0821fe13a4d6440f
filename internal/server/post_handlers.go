// Package server contains the HTTP handlers and routing for the application.
package server

import (
	"ripple/internal/models"
	"ripple/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Feed handles GET /
func (s *Server) Feed(c *fiber.Ctx) error {
	p := parsePagination(c, 20)
	currentUserID, _ := s.optionalUserID(c)

	posts, err := s.postService.GetFeed(c.Context(), p.Limit, p.Offset, currentUserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":  posts,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// CreatePost handles POST /posts/create. The body is multipart: a content
// field plus an optional image file.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	content := c.FormValue("content")

	var image string
	if file, err := c.FormFile("image"); err == nil && file != nil {
		stored, saveErr := s.uploads.Save(file)
		if saveErr != nil {
			return mapServiceError(c, saveErr)
		}
		image = stored
	}

	_, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		UserID:  userID,
		Content: content,
		Image:   image,
	})
	if err != nil {
		// No record was created; don't leave the upload behind.
		if image != "" {
			_ = s.uploads.Remove(image)
		}
		return mapServiceError(c, err)
	}

	return c.Redirect(profilePath, fiber.StatusSeeOther)
}

// EditPost handles GET /posts/edit/:id and returns the post payload for the
// edit form. Only the owner may fetch it.
func (s *Server) EditPost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPostForEdit(c.Context(), postID, userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"post": post,
	})
}

// UpdatePost handles POST /posts/update/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content" form:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if _, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		UserID:  userID,
		PostID:  postID,
		Content: req.Content,
	}); err != nil {
		return mapServiceError(c, err)
	}

	return c.Redirect(profilePath, fiber.StatusSeeOther)
}

// DeletePost handles POST /posts/delete/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), service.DeletePostInput{
		UserID: userID,
		PostID: postID,
	}); err != nil {
		return mapServiceError(c, err)
	}

	return c.Redirect(profilePath, fiber.StatusSeeOther)
}

// LikePost handles GET /posts/likes/:id, toggling the like and returning to
// the profile page.
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.toggleLike(c, profilePath)
}

// HomeLikePost handles GET /posts/homelikes/:id, toggling the like and
// returning to the feed.
func (s *Server) HomeLikePost(c *fiber.Ctx) error {
	return s.toggleLike(c, "/")
}

func (s *Server) toggleLike(c *fiber.Ctx, returnTo string) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if _, err := s.postService.ToggleLike(c.Context(), userID, postID); err != nil {
		return mapServiceError(c, err)
	}

	return c.Redirect(returnTo, fiber.StatusSeeOther)
}

// DownloadImage handles GET /posts/download/:imageName and serves a stored
// image as an attachment.
func (s *Server) DownloadImage(c *fiber.Ctx) error {
	name := c.Params("imageName")

	path, err := s.uploads.Path(name)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Download(path, name)
}
