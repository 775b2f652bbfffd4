package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a post or category does not exist.
var ErrNotFound = errors.New("blog: not found")

// Store provides database operations for posts and categories.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new blog store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// postColumns is the full list of columns used in post SELECT statements.
const postColumns = `id, title, slug, content, COALESCE(excerpt, ''),
	COALESCE(featured_image, ''), COALESCE(category, ''), published,
	is_featured, COALESCE(author_id, ''), created_at, updated_at`

func scanPost(row pgx.Row) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt,
		&p.FeaturedImage, &p.Category, &p.Published, &p.IsFeatured,
		&p.AuthorID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts a new post and returns the full row.
func (s *Store) CreatePost(ctx context.Context, in CreatePostInput) (*Post, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`INSERT INTO blog_posts
		(id, title, slug, content, excerpt, featured_image, category,
		 published, is_featured, author_id, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''),
		 $8, $9, NULLIF($10, ''), $11)
		RETURNING %s`, postColumns)
	row := s.pool.QueryRow(ctx, query,
		uuid.NewString(), in.Title, in.Slug, in.Content, in.Excerpt,
		in.FeaturedImage, in.Category, in.Published, in.IsFeatured,
		in.AuthorID, time.Now())
	p, err := scanPost(row)
	if err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	return p, nil
}

// ListPosts returns posts, newest first, honoring the optional filters.
func (s *Store) ListPosts(ctx context.Context, in ListPostsInput) ([]*Post, error) {
	var conds []string
	var args []any
	if in.Published != nil {
		args = append(args, *in.Published)
		conds = append(conds, fmt.Sprintf("published = $%d", len(args)))
	}
	if in.Category != "" {
		args = append(args, in.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM blog_posts`, postColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if in.Limit > 0 {
		args = append(args, in.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// PostBySlug retrieves a single post by its slug.
func (s *Store) PostBySlug(ctx context.Context, slug string) (*Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM blog_posts WHERE slug = $1`, postColumns)
	p, err := scanPost(s.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting post by slug: %w", err)
	}
	return p, nil
}

// UpdatePost performs a partial update on the post with the given id.
func (s *Store) UpdatePost(ctx context.Context, id string, in UpdatePostInput) (*Post, error) {
	var setClauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Slug != nil {
		if !ValidSlug(*in.Slug) {
			return nil, ErrSlugInvalid
		}
		add("slug", *in.Slug)
	}
	if in.Content != nil {
		add("content", *in.Content)
	}
	if in.Excerpt != nil {
		add("excerpt", *in.Excerpt)
	}
	if in.FeaturedImage != nil {
		add("featured_image", *in.FeaturedImage)
	}
	if in.Category != nil {
		add("category", *in.Category)
	}
	if in.Published != nil {
		add("published", *in.Published)
	}
	if in.IsFeatured != nil {
		add("is_featured", *in.IsFeatured)
	}

	if len(setClauses) == 0 {
		return s.postByID(ctx, id)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE blog_posts SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), len(args), postColumns)

	p, err := scanPost(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating post: %w", err)
	}
	return p, nil
}

func (s *Store) postByID(ctx context.Context, id string) (*Post, error) {
	query := fmt.Sprintf(`SELECT %s FROM blog_posts WHERE id = $1`, postColumns)
	p, err := scanPost(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting post by id: %w", err)
	}
	return p, nil
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return nil
}

const categoryColumns = `id, name, slug, COALESCE(description, ''), COALESCE(color, '')`

func scanCategory(row pgx.Row) (*Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Color)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCategory inserts a new category.
func (s *Store) CreateCategory(ctx context.Context, in CreateCategoryInput) (*Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`INSERT INTO categories (id, name, slug, description, color)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING %s`, categoryColumns)
	c, err := scanCategory(s.pool.QueryRow(ctx, query,
		uuid.NewString(), in.Name, in.Slug, in.Description, in.Color))
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories ORDER BY name`, categoryColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// UpdateCategory performs a partial update on the category with the given id.
func (s *Store) UpdateCategory(ctx context.Context, id string, in UpdateCategoryInput) (*Category, error) {
	var setClauses []string
	var args []any

	add := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Slug != nil {
		if !ValidSlug(*in.Slug) {
			return nil, ErrSlugInvalid
		}
		add("slug", *in.Slug)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Color != nil {
		add("color", *in.Color)
	}

	if len(setClauses) == 0 {
		return s.categoryByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE categories SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), len(args), categoryColumns)

	c, err := scanCategory(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	return c, nil
}

func (s *Store) categoryByID(ctx context.Context, id string) (*Category, error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	c, err := scanCategory(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category by id: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category by id.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return nil
}
