// Package guard проверяет право запрашивающего пользователя изменять контент
// и корректность создаваемых подписок.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ButyrinIA/yatube/internal/models"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation error")
)

const (
	msgNotAuthenticated = "authentication credentials were not provided"
	msgModifyForbidden  = "modifying someone else's content is forbidden"
	msgSelfFollow       = "cannot follow yourself"
	msgAlreadyFollowing = "already following this user"
)

// Error - ошибка проверки с сообщением для клиента.
// Kind - один из ErrNotAuthenticated, ErrPermissionDenied, ErrValidation.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Owned - ресурс, у которого есть автор
type Owned interface {
	Owner() string
	Kind() string
}

// FollowChecker отвечает на вопрос, существует ли уже подписка
type FollowChecker interface {
	FollowExists(ctx context.Context, userID, followingID string) (bool, error)
}

func NotAuthenticated() error {
	return &Error{Kind: ErrNotAuthenticated, Message: msgNotAuthenticated}
}

func SelfFollow() error {
	return &Error{Kind: ErrValidation, Message: msgSelfFollow}
}

func AlreadyFollowing() error {
	return &Error{Kind: ErrValidation, Message: msgAlreadyFollowing}
}

// AuthorizeUpdate разрешает изменение только автору ресурса
func AuthorizeUpdate(resource Owned, requester string) error {
	if requester == "" {
		return NotAuthenticated()
	}
	if resource.Owner() != requester {
		return &Error{Kind: ErrPermissionDenied, Message: msgModifyForbidden}
	}
	return nil
}

// AuthorizeDelete разрешает удаление только автору ресурса
func AuthorizeDelete(resource Owned, requester string) error {
	if requester == "" {
		return NotAuthenticated()
	}
	if resource.Owner() != requester {
		return &Error{
			Kind:    ErrPermissionDenied,
			Message: fmt.Sprintf("you cannot delete someone else's %s", resource.Kind()),
		}
	}
	return nil
}

// AuthorizeFollow проверяет подписку requester на following до записи в хранилище.
// Хранилище повторяет проверку уникальности атомарно.
func AuthorizeFollow(ctx context.Context, checker FollowChecker, requester, following string) error {
	if requester == "" {
		return NotAuthenticated()
	}
	if requester == following {
		return SelfFollow()
	}
	exists, err := checker.FollowExists(ctx, requester, following)
	if err != nil {
		return fmt.Errorf("failed to check follow: %w", err)
	}
	if exists {
		return AlreadyFollowing()
	}
	return nil
}

// AssignPostAuthor перезаписывает автора, пришедшего в теле запроса
func AssignPostAuthor(post *models.Post, requester string) error {
	if requester == "" {
		return NotAuthenticated()
	}
	post.AuthorID = requester
	return nil
}

// AssignCommentAuthor фиксирует автора и пост из пути запроса
func AssignCommentAuthor(comment *models.Comment, requester string, postID int64) error {
	if requester == "" {
		return NotAuthenticated()
	}
	comment.AuthorID = requester
	comment.PostID = postID
	return nil
}
