package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
)

type MemoryStorage struct {
	users    map[string]*models.User
	groups   map[int64]*models.Group
	posts    map[int64]*models.Post
	comments map[int64]*models.Comment
	follows  []*models.Follow
	lastID   int64
	mu       sync.RWMutex
}

func New() *MemoryStorage {
	return &MemoryStorage{
		users:    make(map[string]*models.User),
		groups:   make(map[int64]*models.Group),
		posts:    make(map[int64]*models.Post),
		comments: make(map[int64]*models.Comment),
	}
}

// nextID вызывается под блокировкой на запись
func (s *MemoryStorage) nextID() int64 {
	s.lastID++
	return s.lastID
}

func (s *MemoryStorage) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return fmt.Errorf("user %q: %w", user.Username, storage.ErrAlreadyExists)
		}
	}
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	u := *user
	return &u, nil
}

func (s *MemoryStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Username == username {
			u := *user
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

func (s *MemoryStorage) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if user, exists := s.users[id]; exists {
			u := *user
			result[id] = &u
		}
	}
	return result, nil
}

func (s *MemoryStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, g := range s.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("group %q: %w", group.Slug, storage.ErrAlreadyExists)
		}
	}
	group.ID = s.nextID()
	g := *group
	s.groups[g.ID] = &g
	return nil
}

func (s *MemoryStorage) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, exists := s.groups[id]
	if !exists {
		return nil, fmt.Errorf("group %d: %w", id, storage.ErrNotFound)
	}
	g := *group
	return &g, nil
}

func (s *MemoryStorage) ListGroups(ctx context.Context) ([]*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*models.Group, 0, len(s.groups))
	for _, group := range s.groups {
		g := *group
		groups = append(groups, &g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (s *MemoryStorage) checkPostRefs(post *models.Post) error {
	if _, exists := s.users[post.AuthorID]; !exists {
		return fmt.Errorf("author %s: %w", post.AuthorID, storage.ErrInvalidReference)
	}
	if post.GroupID != nil {
		if _, exists := s.groups[*post.GroupID]; !exists {
			return fmt.Errorf("group %d: %w", *post.GroupID, storage.ErrInvalidReference)
		}
	}
	return nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPostRefs(post); err != nil {
		return err
	}
	post.ID = s.nextID()
	p := *post
	s.posts[p.ID] = &p
	return nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, exists := s.posts[id]
	if !exists {
		return nil, fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	p := *post
	return &p, nil
}

func (s *MemoryStorage) ListPosts(ctx context.Context, limit, offset int) (*models.PaginatedPosts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		p := *post
		posts = append(posts, &p)
	}

	// Сортировка от новых к старым
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].ID > posts[j].ID
		}
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	totalCount := len(posts)

	startIdx := offset
	if startIdx > len(posts) {
		startIdx = len(posts)
	}
	endIdx := len(posts)
	if limit > 0 && limit < endIdx-startIdx {
		endIdx = startIdx + limit
	}

	return &models.PaginatedPosts{
		Posts:      posts[startIdx:endIdx],
		TotalCount: totalCount,
	}, nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; !exists {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	if err := s.checkPostRefs(post); err != nil {
		return err
	}
	p := *post
	s.posts[p.ID] = &p
	return nil
}

func (s *MemoryStorage) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[id]; !exists {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	delete(s.posts, id)
	// Комментарии удаляются вместе с постом, как ON DELETE CASCADE в SQL
	for cid, comment := range s.comments {
		if comment.PostID == id {
			delete(s.comments, cid)
		}
	}
	return nil
}

func (s *MemoryStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[comment.PostID]; !exists {
		return fmt.Errorf("post %d: %w", comment.PostID, storage.ErrInvalidReference)
	}
	if _, exists := s.users[comment.AuthorID]; !exists {
		return fmt.Errorf("author %s: %w", comment.AuthorID, storage.ErrInvalidReference)
	}
	comment.ID = s.nextID()
	c := *comment
	s.comments[c.ID] = &c
	return nil
}

func (s *MemoryStorage) GetComment(ctx context.Context, postID, id int64) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, exists := s.comments[id]
	if !exists || comment.PostID != postID {
		return nil, fmt.Errorf("comment %d: %w", id, storage.ErrNotFound)
	}
	c := *comment
	return &c, nil
}

func (s *MemoryStorage) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*models.Comment, 0)
	for _, comment := range s.comments {
		if comment.PostID == postID {
			c := *comment
			comments = append(comments, &c)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (s *MemoryStorage) UpdateComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.comments[comment.ID]; !exists {
		return fmt.Errorf("comment %d: %w", comment.ID, storage.ErrNotFound)
	}
	c := *comment
	s.comments[c.ID] = &c
	return nil
}

func (s *MemoryStorage) DeleteComment(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.comments[id]; !exists {
		return fmt.Errorf("comment %d: %w", id, storage.ErrNotFound)
	}
	delete(s.comments, id)
	return nil
}

// CreateFollow проверяет уникальность и вставляет запись под одной блокировкой
func (s *MemoryStorage) CreateFollow(ctx context.Context, follow *models.Follow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if follow.UserID == follow.FollowingID {
		return storage.ErrSelfFollow
	}
	for _, id := range []string{follow.UserID, follow.FollowingID} {
		if _, exists := s.users[id]; !exists {
			return fmt.Errorf("user %s: %w", id, storage.ErrInvalidReference)
		}
	}
	for _, f := range s.follows {
		if f.UserID == follow.UserID && f.FollowingID == follow.FollowingID {
			return fmt.Errorf("follow: %w", storage.ErrAlreadyExists)
		}
	}
	follow.ID = s.nextID()
	f := *follow
	s.follows = append(s.follows, &f)
	return nil
}

func (s *MemoryStorage) FollowExists(ctx context.Context, userID, followingID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.follows {
		if f.UserID == userID && f.FollowingID == followingID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStorage) ListFollows(ctx context.Context, userID, search string) ([]*models.Follow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(search)
	follows := make([]*models.Follow, 0)
	for _, f := range s.follows {
		if f.UserID != userID {
			continue
		}
		if search != "" && !s.usernameContains(f.UserID, search) && !s.usernameContains(f.FollowingID, search) {
			continue
		}
		follow := *f
		follows = append(follows, &follow)
	}
	return follows, nil
}

func (s *MemoryStorage) usernameContains(userID, search string) bool {
	user, exists := s.users[userID]
	return exists && strings.Contains(strings.ToLower(user.Username), search)
}

// Close очищает хранилище
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]*models.User)
	s.groups = make(map[int64]*models.Group)
	s.posts = make(map[int64]*models.Post)
	s.comments = make(map[int64]*models.Comment)
	s.follows = nil
	return nil
}
