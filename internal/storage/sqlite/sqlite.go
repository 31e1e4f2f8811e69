package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at DATETIME NOT NULL,
		group_id INTEGER REFERENCES post_groups(id) ON DELETE SET NULL,
		image TEXT
	);
	CREATE TABLE IF NOT EXISTS comments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS follows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		UNIQUE (user_id, following_id),
		CHECK (user_id <> following_id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

// Время хранится в UTC текстом, поэтому сортировка по created_at совпадает с хронологией
type SQLiteStorage struct {
	db *sql.DB
}

// New открывает базу по пути path. ":memory:" создает базу в памяти.
func New(ctx context.Context, path string) (*SQLiteStorage, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Одно соединение: база в памяти живет, пока живо соединение,
	// а запись в sqlite все равно последовательна.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", what, storage.ErrAlreadyExists)
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return storage.ErrSelfFollow
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%s: %w", what, storage.ErrInvalidReference)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Text, &p.AuthorID, &p.CreatedAt, &p.GroupID, &p.Image); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanComment(row scanner) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash)
	return mapError(err, "user")
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

func (s *SQLiteStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

func (s *SQLiteStorage) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	result := make(map[string]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash FROM users WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, mapError(err, "users")
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		result[u.ID] = &u
	}
	return result, rows.Err()
}

func (s *SQLiteStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO post_groups (title, slug, description) VALUES (?, ?, ?)`,
		group.Title, group.Slug, group.Description)
	if err != nil {
		return mapError(err, "group")
	}
	group.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, description FROM post_groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return nil, mapError(err, "group")
	}
	return &g, nil
}

func (s *SQLiteStorage) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, slug, description FROM post_groups ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*models.Group, 0)
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (s *SQLiteStorage) CreatePost(ctx context.Context, post *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (text, author_id, created_at, group_id, image)
		VALUES (?, ?, ?, ?, ?)`,
		post.Text, post.AuthorID, post.CreatedAt.UTC(), post.GroupID, post.Image)
	if err != nil {
		return mapError(err, "post")
	}
	post.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx, `
		SELECT id, text, author_id, created_at, group_id, image
		FROM posts WHERE id = ?`, id))
	if err != nil {
		return nil, mapError(err, "post")
	}
	return post, nil
}

func (s *SQLiteStorage) ListPosts(ctx context.Context, limit, offset int) (*models.PaginatedPosts, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&totalCount); err != nil {
		return nil, err
	}

	// LIMIT -1 означает без ограничения
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, author_id, created_at, group_id, image
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedPosts{Posts: posts, TotalCount: totalCount}, nil
}

func (s *SQLiteStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?`,
		post.Text, post.GroupID, post.Image, post.ID)
	if err != nil {
		return mapError(err, "post")
	}
	return checkAffected(res, fmt.Sprintf("post %d", post.ID))
}

func (s *SQLiteStorage) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res, fmt.Sprintf("post %d", id))
}

func (s *SQLiteStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (post_id, author_id, text, created_at) VALUES (?, ?, ?, ?)`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt.UTC())
	if err != nil {
		return mapError(err, "comment")
	}
	comment.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) GetComment(ctx context.Context, postID, id int64) (*models.Comment, error) {
	comment, err := scanComment(s.db.QueryRowContext(ctx, `
		SELECT id, post_id, author_id, text, created_at
		FROM comments WHERE id = ? AND post_id = ?`, id, postID))
	if err != nil {
		return nil, mapError(err, "comment")
	}
	return comment, nil
}

func (s *SQLiteStorage) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, author_id, text, created_at
		FROM comments WHERE post_id = ? ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, rows.Err()
}

func (s *SQLiteStorage) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res, err := s.db.ExecContext(ctx, `UPDATE comments SET text = ? WHERE id = ?`, comment.Text, comment.ID)
	if err != nil {
		return mapError(err, "comment")
	}
	return checkAffected(res, fmt.Sprintf("comment %d", comment.ID))
}

func (s *SQLiteStorage) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res, fmt.Sprintf("comment %d", id))
}

func (s *SQLiteStorage) CreateFollow(ctx context.Context, follow *models.Follow) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO follows (user_id, following_id) VALUES (?, ?)`,
		follow.UserID, follow.FollowingID)
	if err != nil {
		return mapError(err, "follow")
	}
	follow.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) FollowExists(ctx context.Context, userID, followingID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = ? AND following_id = ?)`,
		userID, followingID).Scan(&exists)
	return exists, err
}

// ListFollows ищет подстроку буквально. lower() в sqlite работает только с ASCII,
// имена пользователей ограничены ASCII при регистрации.
func (s *SQLiteStorage) ListFollows(ctx context.Context, userID, search string) ([]*models.Follow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.following_id
		FROM follows f
		JOIN users u ON u.id = f.user_id
		JOIN users fu ON fu.id = f.following_id
		WHERE f.user_id = ?1
		AND (?2 = '' OR instr(lower(u.username), lower(?2)) > 0 OR instr(lower(fu.username), lower(?2)) > 0)
		ORDER BY f.id`, userID, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	follows := make([]*models.Follow, 0)
	for rows.Next() {
		var f models.Follow
		if err := rows.Scan(&f.ID, &f.UserID, &f.FollowingID); err != nil {
			return nil, err
		}
		follows = append(follows, &f)
	}
	return follows, rows.Err()
}

func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
