package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

type knowledgeItemSummary struct {
	ID          string                `json:"id"`
	CategoryID  string                `json:"category_id,omitempty"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      store.KnowledgeStatus `json:"status"`
	SortOrder   int32                 `json:"sort_order"`
}

type knowledgeCategoryView struct {
	Title string                  `json:"title"`
	Icon  string                  `json:"icon,omitempty"`
	Items []*knowledgeItemSummary `json:"items"`
}

type knowledgeItemResponse struct {
	ID           string                `json:"id"`
	CategoryID   string                `json:"category_id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       store.KnowledgeStatus `json:"status"`
	Content      string                `json:"content"`
	ContentHTML  string                `json:"content_html"`
	ExternalLink string                `json:"external_link,omitempty"`
	SortOrder    int32                 `json:"sort_order"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type knowledgeDetailResponse struct {
	ID          string    `json:"id"`
	KnowledgeID string    `json:"knowledge_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	SortOrder   int32     `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func convertKnowledgeDetail(d *store.KnowledgeDetail) *knowledgeDetailResponse {
	return &knowledgeDetailResponse{
		ID:          d.ID,
		KnowledgeID: d.KnowledgeID,
		Title:       d.Title,
		Content:     d.Content,
		SortOrder:   d.SortOrder,
		CreatedAt:   time.Unix(d.CreatedTs, 0).UTC(),
		UpdatedAt:   time.Unix(d.UpdatedTs, 0).UTC(),
	}
}

type knowledgeCategoryResponse struct {
	CategoryID  string `json:"category_id"`
	Title       string `json:"title"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sort_order"`
	IsActive    bool   `json:"is_active"`
}

func convertKnowledgeCategory(c *store.KnowledgeCategory) *knowledgeCategoryResponse {
	return &knowledgeCategoryResponse{
		CategoryID:  c.CategoryID,
		Title:       c.Title,
		Icon:        c.Icon,
		Description: c.Description,
		SortOrder:   c.SortOrder,
		IsActive:    c.IsActive,
	}
}

type knowledgeCategoryRequest struct {
	CategoryID  string `json:"category_id" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	SortOrder   int32  `json:"sort_order"`
	IsActive    *bool  `json:"is_active"`
}

type updateKnowledgeCategoryRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
	SortOrder   *int32  `json:"sort_order"`
	IsActive    *bool   `json:"is_active"`
}

type knowledgeItemRequest struct {
	CategoryID   string `json:"category_id" validate:"required"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description"`
	Status       string `json:"status" validate:"omitempty,oneof=completed pending future"`
	Content      string `json:"content"`
	ExternalLink string `json:"external_link" validate:"omitempty,url"`
	SortOrder    int32  `json:"sort_order"`
}

type updateKnowledgeItemRequest struct {
	CategoryID   *string `json:"category_id" validate:"omitnil,min=1"`
	Title        *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description  *string `json:"description"`
	Status       *string `json:"status" validate:"omitnil,oneof=completed pending future"`
	Content      *string `json:"content"`
	ExternalLink *string `json:"external_link" validate:"omitempty,url"`
	SortOrder    *int32  `json:"sort_order"`
}

type knowledgeDetailRequest struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content"`
	SortOrder int32  `json:"sort_order"`
}

type updateKnowledgeDetailRequest struct {
	Title     *string `json:"title" validate:"omitnil,min=1,max=200"`
	Content   *string `json:"content"`
	SortOrder *int32  `json:"sort_order"`
}

// ListKnowledgeCategories returns the active categories keyed by category id,
// each with its items in display order.
func (s *APIV1Service) ListKnowledgeCategories(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := cache.ReadThrough(ctx, s.Cache, cache.KeyKnowledgeCategories.Format(), cache.ClassKnowledge.TTL(),
		s.loadKnowledgeCategories)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) loadKnowledgeCategories(ctx context.Context) (map[string]*knowledgeCategoryView, error) {
	active := true
	categories, err := s.Store.ListKnowledgeCategories(ctx, &store.FindKnowledgeCategory{IsActive: &active})
	if err != nil {
		return nil, apierrors.Internal("failed to list knowledge categories", err)
	}
	items, err := s.Store.ListKnowledgeItems(ctx, &store.FindKnowledgeItem{ActiveCategoryOnly: true})
	if err != nil {
		return nil, apierrors.Internal("failed to list knowledge items", err)
	}

	result := make(map[string]*knowledgeCategoryView, len(categories))
	for _, category := range categories {
		result[category.CategoryID] = &knowledgeCategoryView{
			Title: category.Title,
			Icon:  category.Icon,
			Items: []*knowledgeItemSummary{},
		}
	}
	for _, item := range items {
		view, ok := result[item.CategoryID]
		if !ok {
			continue
		}
		view.Items = append(view.Items, &knowledgeItemSummary{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Status:      item.Status,
			SortOrder:   item.SortOrder,
		})
	}
	return result, nil
}

func (s *APIV1Service) GetKnowledgeItem(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	result, err := cache.ReadThrough(ctx, s.Cache, cache.KeyKnowledgeItem.Format(id), cache.ClassKnowledge.TTL(),
		func(ctx context.Context) (*knowledgeItemResponse, error) {
			item, err := s.getKnowledgeItem(ctx, id)
			if err != nil {
				return nil, err
			}
			html, err := s.MarkdownService.RenderHTML(item.Content)
			if err != nil {
				return nil, apierrors.Internal("failed to render knowledge item", err)
			}
			return &knowledgeItemResponse{
				ID:           item.ID,
				CategoryID:   item.CategoryID,
				Title:        item.Title,
				Description:  item.Description,
				Status:       item.Status,
				Content:      item.Content,
				ContentHTML:  html,
				ExternalLink: item.ExternalLink,
				SortOrder:    item.SortOrder,
				CreatedAt:    time.Unix(item.CreatedTs, 0).UTC(),
				UpdatedAt:    time.Unix(item.UpdatedTs, 0).UTC(),
			}, nil
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) getKnowledgeItem(ctx context.Context, id string) (*store.KnowledgeItem, error) {
	item, err := s.Store.GetKnowledgeItem(ctx, &store.FindKnowledgeItem{ID: &id})
	if err != nil {
		return nil, apierrors.Internal("failed to get knowledge item", err)
	}
	if item == nil {
		return nil, apierrors.NotFound("knowledge item not found").WithContext("id", id)
	}
	return item, nil
}

func (s *APIV1Service) getKnowledgeCategory(ctx context.Context, categoryID string) (*store.KnowledgeCategory, error) {
	category, err := s.Store.GetKnowledgeCategory(ctx, &store.FindKnowledgeCategory{CategoryID: &categoryID})
	if err != nil {
		return nil, apierrors.Internal("failed to get knowledge category", err)
	}
	return category, nil
}

// FilterKnowledgeItems lists items whose title contains q, optionally
// restricted to a category and a status.
func (s *APIV1Service) FilterKnowledgeItems(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return apierrors.InvalidArgument("q is required")
	}
	find := &store.FindKnowledgeItem{TitleContains: &q}
	if categoryID := c.QueryParam("category_id"); categoryID != "" {
		find.CategoryID = &categoryID
	}
	if status := c.QueryParam("status"); status != "" {
		st := store.KnowledgeStatus(status)
		if !st.Valid() {
			return apierrors.InvalidArgument("status must be one of completed, pending or future").WithContext("status", status)
		}
		find.Status = &st
	}

	items, err := s.Store.ListKnowledgeItems(c.Request().Context(), find)
	if err != nil {
		return apierrors.Internal("failed to search knowledge items", err)
	}
	summaries := make([]*knowledgeItemSummary, 0, len(items))
	for _, item := range items {
		summaries = append(summaries, &knowledgeItemSummary{
			ID:          item.ID,
			CategoryID:  item.CategoryID,
			Title:       item.Title,
			Description: item.Description,
			Status:      item.Status,
			SortOrder:   item.SortOrder,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"items": summaries, "total": len(summaries)})
}

func (s *APIV1Service) CreateKnowledgeItem(c echo.Context) error {
	ctx := c.Request().Context()
	var req knowledgeItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := s.getKnowledgeCategory(ctx, req.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return apierrors.InvalidArgument("category does not exist").WithContext("category_id", req.CategoryID)
	}
	status := store.KnowledgeStatus(req.Status)
	if status == "" {
		status = store.KnowledgeStatusPending
	}

	item, err := s.Store.CreateKnowledgeItem(ctx, &store.KnowledgeItem{
		ID:           uuid.NewString(),
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       status,
		Content:      req.Content,
		ExternalLink: req.ExternalLink,
		SortOrder:    req.SortOrder,
	})
	if err != nil {
		return apierrors.Internal("failed to create knowledge item", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return c.JSON(http.StatusCreated, map[string]string{"message": "knowledge item created", "item_id": item.ID})
}

func (s *APIV1Service) UpdateKnowledgeItem(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateKnowledgeItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := s.getKnowledgeItem(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if req.CategoryID != nil && *req.CategoryID != item.CategoryID {
		category, err := s.getKnowledgeCategory(ctx, *req.CategoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apierrors.InvalidArgument("category does not exist").WithContext("category_id", *req.CategoryID)
		}
	}

	update := &store.UpdateKnowledgeItem{
		ID:           item.ID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Description:  req.Description,
		Content:      req.Content,
		ExternalLink: req.ExternalLink,
		SortOrder:    req.SortOrder,
	}
	if req.Status != nil {
		status := store.KnowledgeStatus(*req.Status)
		update.Status = &status
	}
	if _, err := s.Store.UpdateKnowledgeItem(ctx, update); err != nil {
		return apierrors.Internal("failed to update knowledge item", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return message(c, "knowledge item updated")
}

func (s *APIV1Service) DeleteKnowledgeItem(c echo.Context) error {
	ctx := c.Request().Context()
	item, err := s.getKnowledgeItem(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.Store.DeleteKnowledgeItem(ctx, &store.DeleteKnowledgeItem{ID: item.ID}); err != nil {
		return apierrors.Internal("failed to delete knowledge item", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return message(c, "knowledge item deleted")
}

func (s *APIV1Service) ListKnowledgeDetails(c echo.Context) error {
	ctx := c.Request().Context()
	item, err := s.getKnowledgeItem(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	details, err := s.Store.ListKnowledgeDetails(ctx, &store.FindKnowledgeDetail{KnowledgeID: &item.ID})
	if err != nil {
		return apierrors.Internal("failed to list knowledge details", err)
	}
	result := make([]*knowledgeDetailResponse, 0, len(details))
	for _, d := range details {
		result = append(result, convertKnowledgeDetail(d))
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) getKnowledgeDetail(ctx context.Context, id string) (*store.KnowledgeDetail, error) {
	detail, err := s.Store.GetKnowledgeDetail(ctx, &store.FindKnowledgeDetail{ID: &id})
	if err != nil {
		return nil, apierrors.Internal("failed to get knowledge detail", err)
	}
	if detail == nil {
		return nil, apierrors.NotFound("knowledge detail not found").WithContext("id", id)
	}
	return detail, nil
}

func (s *APIV1Service) GetKnowledgeDetail(c echo.Context) error {
	detail, err := s.getKnowledgeDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertKnowledgeDetail(detail))
}

func (s *APIV1Service) CreateKnowledgeDetail(c echo.Context) error {
	ctx := c.Request().Context()
	var req knowledgeDetailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	item, err := s.getKnowledgeItem(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	detail, err := s.Store.CreateKnowledgeDetail(ctx, &store.KnowledgeDetail{
		ID:          uuid.NewString(),
		KnowledgeID: item.ID,
		Title:       req.Title,
		Content:     req.Content,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		return apierrors.Internal("failed to create knowledge detail", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return c.JSON(http.StatusCreated, convertKnowledgeDetail(detail))
}

func (s *APIV1Service) UpdateKnowledgeDetail(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateKnowledgeDetailRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	detail, err := s.getKnowledgeDetail(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	updated, err := s.Store.UpdateKnowledgeDetail(ctx, &store.UpdateKnowledgeDetail{
		ID:        detail.ID,
		Title:     req.Title,
		Content:   req.Content,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return apierrors.Internal("failed to update knowledge detail", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return c.JSON(http.StatusOK, convertKnowledgeDetail(updated))
}

func (s *APIV1Service) DeleteKnowledgeDetail(c echo.Context) error {
	ctx := c.Request().Context()
	detail, err := s.getKnowledgeDetail(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.Store.DeleteKnowledgeDetail(ctx, &store.DeleteKnowledgeDetail{ID: detail.ID}); err != nil {
		return apierrors.Internal("failed to delete knowledge detail", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return message(c, "knowledge detail deleted")
}

func (s *APIV1Service) CreateKnowledgeCategory(c echo.Context) error {
	ctx := c.Request().Context()
	var req knowledgeCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	existing, err := s.getKnowledgeCategory(ctx, req.CategoryID)
	if err != nil {
		return err
	}
	if existing != nil {
		return apierrors.Conflict("category id already exists").WithContext("category_id", req.CategoryID)
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	category, err := s.Store.CreateKnowledgeCategory(ctx, &store.KnowledgeCategory{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Icon:        req.Icon,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    isActive,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apierrors.Conflict("category id already exists").WithContext("category_id", req.CategoryID)
		}
		return apierrors.Internal("failed to create knowledge category", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return c.JSON(http.StatusCreated, convertKnowledgeCategory(category))
}

func (s *APIV1Service) UpdateKnowledgeCategory(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateKnowledgeCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := s.getKnowledgeCategory(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if category == nil {
		return apierrors.NotFound("category not found").WithContext("category_id", c.Param("id"))
	}
	updated, err := s.Store.UpdateKnowledgeCategory(ctx, &store.UpdateKnowledgeCategory{
		ID:          category.ID,
		Title:       req.Title,
		Icon:        req.Icon,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return apierrors.Internal("failed to update knowledge category", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return c.JSON(http.StatusOK, convertKnowledgeCategory(updated))
}

// DeleteKnowledgeCategory refuses to delete a category that still has items.
func (s *APIV1Service) DeleteKnowledgeCategory(c echo.Context) error {
	ctx := c.Request().Context()
	category, err := s.getKnowledgeCategory(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if category == nil {
		return apierrors.NotFound("category not found").WithContext("category_id", c.Param("id"))
	}
	limit := 1
	items, err := s.Store.ListKnowledgeItems(ctx, &store.FindKnowledgeItem{
		CategoryID: &category.CategoryID,
		Pagination: store.Pagination{Limit: &limit},
	})
	if err != nil {
		return apierrors.Internal("failed to list knowledge items", err)
	}
	if len(items) > 0 {
		return apierrors.InvalidArgument("category still has knowledge items").WithContext("category_id", category.CategoryID)
	}
	if err := s.Store.DeleteKnowledgeCategory(ctx, &store.DeleteKnowledgeCategory{ID: category.ID}); err != nil {
		return apierrors.Internal("failed to delete knowledge category", err)
	}
	s.invalidate(c, cache.ClassKnowledge)
	return message(c, "knowledge category deleted")
}
