package http

import (
	"errors"
	"net/http"

	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/usecase"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userUseCase usecase.UserUseCase
}

func NewUserHandler(userUseCase usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type UpdateUsernameRequest struct {
	Username string `json:"username"`
}

// GetMe godoc
// @Summary      Current user's profile
// @Description  Profile with followers, following and posts
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  entity.Profile
// @Failure      404  {object}  map[string]string
// @Router       /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	profile, err := h.userUseCase.GetProfile(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolve := resolver(c)
	profile.ProfilePhoto = resolve(profile.ProfilePhoto)
	resolveSummaries(resolve, profile.Followers)
	resolveSummaries(resolve, profile.Following)
	resolvePosts(resolve, profile.Posts)

	c.JSON(http.StatusOK, profile)
}

// UpdateProfilePhoto godoc
// @Summary      Upload a new profile photo
// @Tags         user
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        profilePhoto formData file true "Image file"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /me [patch]
func (h *UserHandler) UpdateProfilePhoto(c *gin.Context) {
	file, err := c.FormFile("profilePhoto")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": usecase.ErrNoFile.Error()})
		return
	}

	location, err := h.userUseCase.UpdateProfilePhoto(c.Request.Context(), c.GetString(middleware.ContextUserID), file)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Profile photo updated successfully",
		"profilePhoto": resolver(c)(location),
	})
}

// ToggleFollow godoc
// @Summary      Follow or unfollow a user
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /follow/{id} [post]
func (h *UserHandler) ToggleFollow(c *gin.Context) {
	following, err := h.userUseCase.ToggleFollow(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	if following {
		c.JSON(http.StatusOK, gin.H{"message": "Followed user successfully and notification created", "following": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unfollowed user successfully", "following": false})
}

// GetFollowedUsers godoc
// @Summary      Users the caller follows
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]entity.UserSummary
// @Router       /followedUsers [get]
func (h *UserHandler) GetFollowedUsers(c *gin.Context) {
	following, err := h.userUseCase.GetFollowing(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	resolveSummaries(resolver(c), following)
	c.JSON(http.StatusOK, gin.H{"followedUsers": following})
}

// GetFollowers godoc
// @Summary      Users following the caller
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]entity.UserSummary
// @Router       /followers [get]
func (h *UserHandler) GetFollowers(c *gin.Context) {
	followers, err := h.userUseCase.GetFollowers(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	resolveSummaries(resolver(c), followers)
	c.JSON(http.StatusOK, gin.H{"followers": followers})
}

// GetFollowersAndFollowing godoc
// @Summary      Both sides of the caller's graph
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]entity.UserSummary
// @Router       /followers-following [get]
func (h *UserHandler) GetFollowersAndFollowing(c *gin.Context) {
	ctx := c.Request.Context()
	userID := c.GetString(middleware.ContextUserID)

	followers, err := h.userUseCase.GetFollowers(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	following, err := h.userUseCase.GetFollowing(ctx, userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolve := resolver(c)
	resolveSummaries(resolve, followers)
	resolveSummaries(resolve, following)
	c.JSON(http.StatusOK, gin.H{"followers": followers, "following": following})
}

// UpdateUsername godoc
// @Summary      Change the caller's username
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateUsernameRequest true "New username"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /me/username [patch]
func (h *UserHandler) UpdateUsername(c *gin.Context) {
	var req UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username, err := h.userUseCase.UpdateUsername(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Username updated successfully", "username": username})
}

// GetFollower godoc
// @Summary      Another user's profile and posts
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /follower/{id} [get]
func (h *UserHandler) GetFollower(c *gin.Context) {
	user, posts, err := h.userUseCase.GetFollower(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolve := resolver(c)
	user.ProfilePhoto = resolve(user.ProfilePhoto)
	resolvePosts(resolve, posts)
	c.JSON(http.StatusOK, gin.H{"follower": user, "posts": posts})
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrTargetNotFound),
		errors.Is(err, usecase.ErrFollowerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrCannotFollowSelf),
		errors.Is(err, usecase.ErrUsernameRequired),
		errors.Is(err, usecase.ErrNoFile),
		errors.Is(err, storage.ErrUnsupportedImage),
		errors.Is(err, storage.ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrUsernameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func resolver(c *gin.Context) func(string) string {
	scheme := storage.RequestScheme(c.Request)
	host := c.Request.Host
	return func(location string) string {
		return storage.PublicURL(scheme, host, location)
	}
}

func resolveSummaries(resolve func(string) string, list []entity.UserSummary) {
	for i := range list {
		list[i].ProfilePhoto = resolve(list[i].ProfilePhoto)
	}
}

func resolvePosts(resolve func(string) string, posts []entity.Post) {
	for i := range posts {
		posts[i].Img = resolve(posts[i].Img)
	}
}
