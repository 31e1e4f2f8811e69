package storage

import (
	"context"
	"errors"

	"github.com/ButyrinIA/yatube/internal/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrSelfFollow       = errors.New("self follow")
	ErrInvalidReference = errors.New("invalid reference")
)

type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error)

	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, id int64) (*models.Group, error)
	ListGroups(ctx context.Context) ([]*models.Group, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	// ListPosts возвращает посты от новых к старым. limit <= 0 означает без ограничения.
	ListPosts(ctx context.Context, limit, offset int) (*models.PaginatedPosts, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id int64) error

	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, postID, id int64) (*models.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id int64) error

	// CreateFollow возвращает ErrAlreadyExists для повторной пары и ErrSelfFollow для подписки на себя
	CreateFollow(ctx context.Context, follow *models.Follow) error
	FollowExists(ctx context.Context, userID, followingID string) (bool, error)
	ListFollows(ctx context.Context, userID, search string) ([]*models.Follow, error)

	Close() error
}
