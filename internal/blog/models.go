package blog

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Post is a published or draft article on the public site.
type Post struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Slug          string     `json:"slug"`
	Content       string     `json:"content"`
	Excerpt       string     `json:"excerpt,omitempty"`
	FeaturedImage string     `json:"featured_image,omitempty"`
	Category      string     `json:"category,omitempty"`
	Published     bool       `json:"published"`
	IsFeatured    bool       `json:"is_featured"`
	AuthorID      string     `json:"author_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// Category groups posts on the public site.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// CreatePostInput holds the fields required to create a post.
type CreatePostInput struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt"`
	FeaturedImage string `json:"featured_image"`
	Category      string `json:"category"`
	Published     bool   `json:"published"`
	IsFeatured    bool   `json:"is_featured"`
	AuthorID      string `json:"author_id"`
}

// UpdatePostInput holds optional fields for a partial post update.
type UpdatePostInput struct {
	Title         *string `json:"title,omitempty"`
	Slug          *string `json:"slug,omitempty"`
	Content       *string `json:"content,omitempty"`
	Excerpt       *string `json:"excerpt,omitempty"`
	FeaturedImage *string `json:"featured_image,omitempty"`
	Category      *string `json:"category,omitempty"`
	Published     *bool   `json:"published,omitempty"`
	IsFeatured    *bool   `json:"is_featured,omitempty"`
}

// ListPostsInput filters the post listing.
type ListPostsInput struct {
	Published *bool
	Category  string
	Limit     int
}

// CreateCategoryInput holds the fields required to create a category.
type CreateCategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// UpdateCategoryInput holds optional fields for a partial category update.
type UpdateCategoryInput struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

var (
	ErrTitleRequired = errors.New("title is required")
	ErrSlugRequired  = errors.New("slug is required")
	ErrSlugInvalid   = errors.New("slug may only contain lowercase letters, digits, and hyphens")
	ErrNameRequired  = errors.New("name is required")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a well-formed URL slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// Validate checks a CreatePostInput before it reaches the store.
func (in CreatePostInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(in.Slug) == "" {
		return ErrSlugRequired
	}
	if !ValidSlug(in.Slug) {
		return ErrSlugInvalid
	}
	return nil
}

// Validate checks a CreateCategoryInput before it reaches the store.
func (in CreateCategoryInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(in.Slug) == "" {
		return ErrSlugRequired
	}
	if !ValidSlug(in.Slug) {
		return ErrSlugInvalid
	}
	return nil
}
