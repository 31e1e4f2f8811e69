package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ButyrinIA/yatube/internal/models"
	"github.com/ButyrinIA/yatube/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS post_groups (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS posts (
		id BIGSERIAL PRIMARY KEY,
		text TEXT NOT NULL,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		group_id BIGINT REFERENCES post_groups(id) ON DELETE SET NULL,
		image TEXT
	);
	CREATE TABLE IF NOT EXISTS comments (
		id BIGSERIAL PRIMARY KEY,
		post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS follows (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		following_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT follows_unique_pair UNIQUE (user_id, following_id),
		CONSTRAINT follows_not_self CHECK (user_id <> following_id)
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

// Коды ошибок PostgreSQL
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	checkViolation      = "23514"
)

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string, maxConns int32) (*PostgresStorage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &PostgresStorage{pool: pool}, nil
}

// mapError переводит ошибки ограничений в ошибки пакета storage
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w", what, storage.ErrAlreadyExists)
		case checkViolation:
			if pgErr.ConstraintName == "follows_not_self" {
				return storage.ErrSelfFollow
			}
		case foreignKeyViolation:
			return fmt.Errorf("%s: %w", what, storage.ErrInvalidReference)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (s *PostgresStorage) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)`,
		user.ID, user.Username, user.PasswordHash)
	return mapError(err, "user")
}

func (s *PostgresStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

func (s *PostgresStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash FROM users WHERE username=$1`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if err != nil {
		return nil, mapError(err, "user")
	}
	return &u, nil
}

func (s *PostgresStorage) GetUsers(ctx context.Context, ids []string) (map[string]*models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, password_hash FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapError(err, "users")
	}
	defer rows.Close()

	result := make(map[string]*models.User, len(ids))
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
			return nil, err
		}
		result[u.ID] = &u
	}
	return result, rows.Err()
}

func (s *PostgresStorage) CreateGroup(ctx context.Context, group *models.Group) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO post_groups (title, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id`,
		group.Title, group.Slug, group.Description).Scan(&group.ID)
	return mapError(err, "group")
}

func (s *PostgresStorage) GetGroup(ctx context.Context, id int64) (*models.Group, error) {
	var g models.Group
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, slug, description FROM post_groups WHERE id=$1`, id).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return nil, mapError(err, "group")
	}
	return &g, nil
}

func (s *PostgresStorage) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, title, slug, description FROM post_groups ORDER BY id`)
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

func (s *PostgresStorage) CreatePost(ctx context.Context, post *models.Post) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (text, author_id, created_at, group_id, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		post.Text, post.AuthorID, post.CreatedAt, post.GroupID, post.Image).Scan(&post.ID)
	return mapError(err, "post")
}

func (s *PostgresStorage) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post
	err := s.pool.QueryRow(ctx, `
		SELECT id, text, author_id, created_at, group_id, image
		FROM posts
		WHERE id=$1`, id).Scan(&p.ID, &p.Text, &p.AuthorID, &p.CreatedAt, &p.GroupID, &p.Image)
	if err != nil {
		return nil, mapError(err, "post")
	}
	return &p, nil
}

func (s *PostgresStorage) ListPosts(ctx context.Context, limit, offset int) (*models.PaginatedPosts, error) {
	// Подсчет общего количества
	var totalCount int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&totalCount)
	if err != nil {
		return nil, err
	}

	// LIMIT NULL означает без ограничения
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, text, author_id, created_at, group_id, image
		FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limitArg, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.Text, &p.AuthorID, &p.CreatedAt, &p.GroupID, &p.Image); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &models.PaginatedPosts{
		Posts:      posts,
		TotalCount: totalCount,
	}, nil
}

func (s *PostgresStorage) UpdatePost(ctx context.Context, post *models.Post) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE posts SET text=$2, group_id=$3, image=$4
		WHERE id=$1`,
		post.ID, post.Text, post.GroupID, post.Image)
	if err != nil {
		return mapError(err, "post")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", post.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) DeletePost(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) CreateComment(ctx context.Context, comment *models.Comment) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO comments (post_id, author_id, text, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt).Scan(&comment.ID)
	return mapError(err, "comment")
}

func (s *PostgresStorage) GetComment(ctx context.Context, postID, id int64) (*models.Comment, error) {
	var c models.Comment
	err := s.pool.QueryRow(ctx, `
		SELECT id, post_id, author_id, text, created_at
		FROM comments
		WHERE id=$1 AND post_id=$2`, id, postID).
		Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err, "comment")
	}
	return &c, nil
}

func (s *PostgresStorage) ListComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, post_id, author_id, text, created_at
		FROM comments
		WHERE post_id=$1
		ORDER BY id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

func (s *PostgresStorage) UpdateComment(ctx context.Context, comment *models.Comment) error {
	tag, err := s.pool.Exec(ctx, `UPDATE comments SET text=$2 WHERE id=$1`, comment.ID, comment.Text)
	if err != nil {
		return mapError(err, "comment")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %d: %w", comment.ID, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) DeleteComment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comment %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *PostgresStorage) CreateFollow(ctx context.Context, follow *models.Follow) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO follows (user_id, following_id)
		VALUES ($1, $2)
		RETURNING id`,
		follow.UserID, follow.FollowingID).Scan(&follow.ID)
	return mapError(err, "follow")
}

func (s *PostgresStorage) FollowExists(ctx context.Context, userID, followingID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM follows WHERE user_id=$1 AND following_id=$2)`,
		userID, followingID).Scan(&exists)
	return exists, err
}

// ListFollows ищет подстроку буквально, без шаблонов LIKE
func (s *PostgresStorage) ListFollows(ctx context.Context, userID, search string) ([]*models.Follow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT f.id, f.user_id, f.following_id
		FROM follows f
		JOIN users u ON u.id = f.user_id
		JOIN users fu ON fu.id = f.following_id
		WHERE f.user_id=$1
		AND ($2 = '' OR strpos(lower(u.username), lower($2)) > 0 OR strpos(lower(fu.username), lower($2)) > 0)
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

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
