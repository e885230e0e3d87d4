package http

import (
	"errors"
	"net/http"
	"strconv"

	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/post/internal/entity"
	"snapbuzz/services/post/internal/usecase"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	postUseCase usecase.PostUseCase
}

func NewPostHandler(postUseCase usecase.PostUseCase) *PostHandler {
	return &PostHandler{
		postUseCase: postUseCase,
	}
}

type CreatePostRequest struct {
	Desc string `form:"desc" json:"desc"`
}

type UpdatePostRequest struct {
	Desc string `json:"desc"`
}

type CommentRequest struct {
	Text string `json:"text"`
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Create a post with an optional image, subject to the caller's plan limit
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        desc formData string false "Description"
// @Param        img  formData file   false "Image"
// @Success      200  {object}  entity.Post
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       / [post]
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A missing image is allowed.
	img, _ := c.FormFile("img")

	post, err := h.postUseCase.CreatePost(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Desc, img)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePost(resolver(c), post)
	c.JSON(http.StatusOK, post)
}

// ListPosts godoc
// @Summary      List all posts
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "Page size"
// @Param        offset query int false "Offset"
// @Success      200  {array}   entity.Post
// @Router       / [get]
func (h *PostHandler) ListPosts(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	posts, err := h.postUseCase.ListPosts(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePosts(resolver(c), posts)
	c.JSON(http.StatusOK, posts)
}

// Feed godoc
// @Summary      The caller's feed
// @Description  Posts from followed users and the caller, newest first
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        limit  query int false "Page size"
// @Param        offset query int false "Offset"
// @Success      200  {array}   entity.Post
// @Router       /feed [get]
func (h *PostHandler) Feed(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	posts, err := h.postUseCase.Feed(c.Request.Context(), c.GetString(middleware.ContextUserID), limit, offset)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePosts(resolver(c), posts)
	c.JSON(http.StatusOK, posts)
}

// GetPost godoc
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Success      200  {object}  entity.Post
// @Failure      404  {object}  map[string]string
// @Router       /{id} [get]
func (h *PostHandler) GetPost(c *gin.Context) {
	post, err := h.postUseCase.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePost(resolver(c), post)
	c.JSON(http.StatusOK, post)
}

// UpdatePost godoc
// @Summary      Edit a post's description
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string            true "Post ID"
// @Param        request body UpdatePostRequest true "New description"
// @Success      200  {object}  map[string]interface{}
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /{id} [put]
func (h *PostHandler) UpdatePost(c *gin.Context) {
	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postUseCase.UpdatePost(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), req.Desc)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePost(resolver(c), post)
	c.JSON(http.StatusOK, gin.H{"message": "The post has been updated", "post": post})
}

// DeletePost godoc
// @Summary      Delete a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /{id} [delete]
func (h *PostHandler) DeletePost(c *gin.Context) {
	if err := h.postUseCase.DeletePost(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "The post has been deleted"})
}

// ToggleLike godoc
// @Summary      Like or unlike a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /{id}/like [put]
func (h *PostHandler) ToggleLike(c *gin.Context) {
	liked, count, err := h.postUseCase.ToggleLike(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	message := "The post has been disliked"
	if liked {
		message = "The post has been liked"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "liked": liked, "likes": count})
}

// LikeStatus godoc
// @Summary      Whether a user liked a post
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id     path  string true  "Post ID"
// @Param        userId query string false "User ID, defaults to the caller"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  map[string]string
// @Router       /{id}/like-status [get]
func (h *PostHandler) LikeStatus(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		userID = c.GetString(middleware.ContextUserID)
	}

	liked, err := h.postUseCase.IsLiked(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// UserPosts godoc
// @Summary      Posts of one user
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200  {array}   entity.Post
// @Router       /{id}/posts [get]
func (h *PostHandler) UserPosts(c *gin.Context) {
	posts, err := h.postUseCase.UserPosts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolvePosts(resolver(c), posts)
	c.JSON(http.StatusOK, posts)
}

// AddComment godoc
// @Summary      Comment on a post
// @Tags         comments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string         true "Post ID"
// @Param        request body CommentRequest true "Comment"
// @Success      201  {array}   entity.Comment
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /{id}/comments [post]
func (h *PostHandler) AddComment(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comments, err := h.postUseCase.AddComment(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolveComments(resolver(c), comments)
	c.JSON(http.StatusCreated, comments)
}

// GetComments godoc
// @Summary      Comments on a post, oldest first
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Post ID"
// @Success      200  {array}   entity.Comment
// @Failure      404  {object}  map[string]string
// @Router       /{id}/comments [get]
func (h *PostHandler) GetComments(c *gin.Context) {
	comments, err := h.postUseCase.GetComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolveComments(resolver(c), comments)
	c.JSON(http.StatusOK, comments)
}

// DeleteComment godoc
// @Summary      Delete one of the caller's comments
// @Tags         comments
// @Produce      json
// @Security     BearerAuth
// @Param        id        path string true "Post ID"
// @Param        commentId path string true "Comment ID"
// @Success      200  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /{id}/comments/{commentId} [delete]
func (h *PostHandler) DeleteComment(c *gin.Context) {
	err := h.postUseCase.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

func (h *PostHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrPostNotFound),
		errors.Is(err, usecase.ErrCommentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrPostLimitReached),
		errors.Is(err, usecase.ErrUpdateForbidden),
		errors.Is(err, usecase.ErrDeleteForbidden),
		errors.Is(err, usecase.ErrCommentForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrEmptyComment),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// pagination reads limit and offset. It writes a 400 and returns false on bad input.
func pagination(c *gin.Context) (int, int, bool) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return 0, 0, false
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return 0, 0, false
	}
	return limit, offset, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func resolver(c *gin.Context) func(string) string {
	scheme := storage.RequestScheme(c.Request)
	host := c.Request.Host
	return func(location string) string {
		return storage.PublicURL(scheme, host, location)
	}
}

func resolvePost(resolve func(string) string, post *entity.Post) {
	post.Img = resolve(post.Img)
	post.ProfilePhoto = resolve(post.ProfilePhoto)
	resolveComments(resolve, post.Comments)
}

func resolvePosts(resolve func(string) string, posts []*entity.Post) {
	for _, post := range posts {
		resolvePost(resolve, post)
	}
}

func resolveComments(resolve func(string) string, comments []entity.Comment) {
	for i := range comments {
		comments[i].ProfilePhoto = resolve(comments[i].ProfilePhoto)
	}
}
