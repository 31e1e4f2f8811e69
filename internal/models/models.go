package models

import "time"

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

type Group struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type Post struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	GroupID   *int64    `json:"groupId"`
	Image     *string   `json:"image"`
}

// Owner возвращает идентификатор автора поста
func (p *Post) Owner() string { return p.AuthorID }

// Kind используется в сообщениях об ошибках доступа
func (p *Post) Kind() string { return "post" }

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (c *Comment) Owner() string { return c.AuthorID }

func (c *Comment) Kind() string { return "comment" }

// Follow - подписка UserID на FollowingID
type Follow struct {
	ID          int64  `json:"id"`
	UserID      string `json:"userId"`
	FollowingID string `json:"followingId"`
}

type PaginatedPosts struct {
	Posts      []*Post `json:"posts"`
	TotalCount int     `json:"totalCount"`
}
