package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/avonfire/stationhouse/internal/auth"
	"github.com/avonfire/stationhouse/internal/blog"
	"github.com/go-chi/chi/v5"
)

// blogHandler groups blog post and category HTTP handlers. Reads are public;
// writes are admin-only and routed behind the admin middleware.
type blogHandler struct {
	store *blog.Store
}

func newBlogHandler(store *blog.Store) *blogHandler {
	return &blogHandler{store: store}
}

// ListPosts handles GET /api/v1/posts. Public callers only see published
// posts; the admin listing at /api/v1/admin/posts passes admin=true and can
// filter on the published flag explicitly.
func (h *blogHandler) ListPosts(w http.ResponseWriter, r *http.Request, admin bool) {
	var in blog.ListPostsInput
	in.Category = r.URL.Query().Get("category")

	if admin {
		if v := r.URL.Query().Get("published"); v != "" {
			published, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_query", "published must be true or false")
				return
			}
			in.Published = &published
		}
	} else {
		published := true
		in.Published = &published
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid_query", "limit must be a non-negative integer")
			return
		}
		in.Limit = limit
	}

	posts, err := h.store.ListPosts(r.Context(), in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list posts")
		return
	}

	if posts == nil {
		posts = []*blog.Post{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
	})
}

// GetPost handles GET /api/v1/posts/{slug}. Unpublished posts are hidden from
// the public route.
func (h *blogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "invalid_slug", "post slug is required")
		return
	}

	post, err := h.store.PostBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get post")
		return
	}

	if !post.Published {
		writeError(w, http.StatusNotFound, "not_found", "post not found")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// CreatePost handles POST /api/v1/admin/posts.
func (h *blogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req blog.CreatePostInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	if caller := auth.UserFromContext(r.Context()); caller != nil {
		req.AuthorID = caller.ID
	}

	post, err := h.store.CreatePost(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create post")
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// UpdatePost handles PUT /api/v1/admin/posts/{id}.
func (h *blogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "post id is required")
		return
	}

	var input blog.UpdatePostInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if input.Slug != nil && !blog.ValidSlug(*input.Slug) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", blog.ErrSlugInvalid.Error())
		return
	}

	post, err := h.store.UpdatePost(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update post")
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// DeletePost handles DELETE /api/v1/admin/posts/{id}.
func (h *blogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "post id is required")
		return
	}

	if err := h.store.DeletePost(r.Context(), id); err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/v1/categories.
func (h *blogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list categories")
		return
	}

	if cats == nil {
		cats = []*blog.Category{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": cats,
	})
}

// CreateCategory handles POST /api/v1/admin/categories.
func (h *blogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req blog.CreateCategoryInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	cat, err := h.store.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create category")
		return
	}

	writeJSON(w, http.StatusCreated, cat)
}

// UpdateCategory handles PUT /api/v1/admin/categories/{id}.
func (h *blogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "category id is required")
		return
	}

	var input blog.UpdateCategoryInput
	if err := readJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if input.Slug != nil && !blog.ValidSlug(*input.Slug) {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", blog.ErrSlugInvalid.Error())
		return
	}

	cat, err := h.store.UpdateCategory(r.Context(), id, input)
	if err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update category")
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

// DeleteCategory handles DELETE /api/v1/admin/categories/{id}.
func (h *blogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_id", "category id is required")
		return
	}

	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		if errors.Is(err, blog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
