package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"DevcampAPI/internal/auth"
	"DevcampAPI/internal/cache"
	"DevcampAPI/internal/logger"
	"DevcampAPI/internal/query"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store"

	"github.com/gorilla/mux"
)

// Hooks customise writes of one resource. before is nil on create.
type Hooks struct {
	BeforeWrite func(ctx context.Context, rec, before map[string]any) error
	// AfterWrite runs with the stored record after create and update, and
	// with the removed record after delete.
	AfterWrite func(ctx context.Context, rec map[string]any) error
}

// Resource serves the CRUD routes of one resource.
type Resource struct {
	res   *resource.Resource
	reg   *resource.Registry
	st    store.Store
	cache *cache.PageCache
	hooks Hooks
}

func NewResource(reg *resource.Registry, res *resource.Resource, st store.Store, pc *cache.PageCache, hooks Hooks) *Resource {
	return &Resource{res: res, reg: reg, st: st, cache: pc, hooks: hooks}
}

type listResponse struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Pagination query.Pagination `json:"pagination"`
	Data       []map[string]any `json:"data"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// List serves filtered, sorted and paginated listings. Under a parent route
// (e.g. /bootcamps/{bootcampId}/courses) the listing is scoped to the parent.
func (h *Resource) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	opts := query.Options{Populate: store.PopulateSpecs(h.res, h.res.Populate)}
	parentID := h.parentID(r)
	if parentID != "" {
		opts.ParentField = h.res.Parent.Field
		opts.ParentID = parentID
	}

	page, err := h.cache.GetOrBuild(r.Context(), h.res.Name, parentID, params,
		func(ctx context.Context) (query.PageResult, error) {
			return query.BuildPage(ctx, params, store.Collection(h.st, h.res), opts)
		})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Count:      page.Count(),
		Pagination: page.Pagination,
		Data:       page.Items,
	})
}

func (h *Resource) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.st.Get(r.Context(), h.res, mux.Vars(r)["id"])
	if err != nil {
		WriteError(w, r, err)
		return
	}
	items := []map[string]any{rec}
	if err := store.Attach(r.Context(), h.st, h.res, items, nil, store.PopulateSpecs(h.res, h.res.Populate)); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: items[0]})
}

func (h *Resource) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	rec, err := h.res.Decode(payload, false)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if h.res.Parent != nil {
		parentID := h.parentID(r)
		if err := h.checkParent(ctx, parentID); err != nil {
			WriteError(w, r, err)
			return
		}
		rec[h.res.Parent.Field] = parentID
	}
	if h.res.Owner != "" {
		rec[h.res.Owner] = auth.UserID(ctx)
	}
	if h.hooks.BeforeWrite != nil {
		if err := h.hooks.BeforeWrite(ctx, rec, nil); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	created, err := h.st.Insert(ctx, h.res, rec)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.afterWrite(ctx, created)
	writeJSON(w, http.StatusCreated, dataResponse{Success: true, Data: created})
}

func (h *Resource) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	before, err := h.st.Get(ctx, h.res, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.checkOwner(ctx, before, "update"); err != nil {
		WriteError(w, r, err)
		return
	}

	payload, err := decodeBody(w, r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	patch, err := h.res.Decode(payload, true)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if h.hooks.BeforeWrite != nil {
		if err := h.hooks.BeforeWrite(ctx, patch, before); err != nil {
			WriteError(w, r, err)
			return
		}
	}

	updated, err := h.st.Update(ctx, h.res, id, patch)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	h.afterWrite(ctx, updated)
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: updated})
}

// Delete removes the record and, in cascade, the records of resources
// nested under it.
func (h *Resource) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	before, err := h.st.Get(ctx, h.res, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.checkOwner(ctx, before, "delete"); err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.deleteChildren(ctx, id); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.st.Delete(ctx, h.res, id); err != nil {
		WriteError(w, r, err)
		return
	}
	h.afterWrite(ctx, before)
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: map[string]any{}})
}

func (h *Resource) parentID(r *http.Request) string {
	if h.res.Parent == nil {
		return ""
	}
	return mux.Vars(r)[h.res.Parent.Param]
}

// checkParent requires the parent to exist. An owned parent scope also
// requires the caller to own the parent, unless the caller is an admin.
func (h *Resource) checkParent(ctx context.Context, parentID string) error {
	parentRes := h.reg.MustGet(h.res.Parent.Resource)
	parent, err := h.st.Get(ctx, parentRes, parentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewError(http.StatusNotFound, fmt.Sprintf("No %s with the id of %s", h.res.Parent.Field, parentID))
		}
		return err
	}
	if !h.res.Parent.Owned || parentRes.Owner == "" || auth.UserRole(ctx) == auth.RoleAdmin {
		return nil
	}
	if uid := auth.UserID(ctx); parent[parentRes.Owner] != uid {
		return NewError(http.StatusUnauthorized,
			fmt.Sprintf("User %s is not authorized to add a %s to %s %s", uid, singular(h.res.Name), h.res.Parent.Field, parentID))
	}
	return nil
}

func (h *Resource) checkOwner(ctx context.Context, rec map[string]any, action string) error {
	if h.res.Owner == "" || auth.UserRole(ctx) == auth.RoleAdmin {
		return nil
	}
	if uid := auth.UserID(ctx); rec[h.res.Owner] != uid {
		return NewError(http.StatusUnauthorized,
			fmt.Sprintf("User %s is not authorized to %s this %s", uid, action, singular(h.res.Name)))
	}
	return nil
}

func (h *Resource) deleteChildren(ctx context.Context, id string) error {
	for _, name := range h.reg.Names() {
		child := h.reg.MustGet(name)
		if child.Parent == nil || child.Parent.Resource != h.res.Name {
			continue
		}
		items, err := h.st.Find(ctx, child, query.FindSpec{
			Filter: query.Filter{child.Parent.Field: {{Op: query.OpEq, Value: id}}},
			Select: []string{resource.IDField},
		})
		if err != nil {
			return fmt.Errorf("cascade %s: %w", name, err)
		}
		for _, item := range items {
			if err := h.st.Delete(ctx, child, item[resource.IDField].(string)); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("cascade %s: %w", name, err)
			}
		}
		if len(items) > 0 {
			logger.Info("cascade_deleted", map[string]any{"resource": name, "parent": id, "count": len(items)})
		}
		h.flush(ctx, name)
	}
	return nil
}

// afterWrite runs the hook and drops stale cached pages. Neither fails the
// request: the write itself already succeeded.
func (h *Resource) afterWrite(ctx context.Context, rec map[string]any) {
	if h.hooks.AfterWrite != nil {
		if err := h.hooks.AfterWrite(ctx, rec); err != nil {
			logger.Error("after_write_failed", map[string]any{"resource": h.res.Name, "error": err.Error()})
		}
	}
	h.flush(ctx, h.res.Name)
	if h.res.Parent != nil {
		h.flush(ctx, h.res.Parent.Resource)
	}
}

func (h *Resource) flush(ctx context.Context, name string) {
	flushPages(ctx, h.cache, h.reg, name)
}

// flushPages drops cached pages of name and of every resource populating it.
func flushPages(ctx context.Context, pc *cache.PageCache, reg *resource.Registry, name string) {
	names := append([]string{name}, reg.Dependents(name)...)
	if err := pc.Flush(ctx, names...); err != nil {
		logger.Warn("page_cache_flush_failed", map[string]any{"resources": names, "error": err.Error()})
	}
}

func singular(name string) string {
	if n := len(name); n > 1 && name[n-1] == 's' {
		return name[:n-1]
	}
	return name
}
