package v1

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
	"github.com/hrygo/ispkb/store/cache"
)

type flowArchitectureItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type flowArchitectureView struct {
	Title string                  `json:"title"`
	Items []*flowArchitectureItem `json:"items"`
}

type flowVersionResponse struct {
	VersionID   string `json:"version_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	IsDefault   bool   `json:"is_default"`
}

func convertFlowVersion(v *store.FlowVersion) *flowVersionResponse {
	return &flowVersionResponse{
		VersionID:   v.VersionID,
		Title:       v.Title,
		Description: v.Description,
		IsActive:    v.IsActive,
		IsDefault:   v.IsDefault,
	}
}

type flowModuleSummary struct {
	ModuleID    string `json:"module_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ModuleType  string `json:"module_type"`
	PositionX   int32  `json:"position_x"`
	PositionY   int32  `json:"position_y"`
}

type flowVersionView struct {
	Version *flowVersionResponse `json:"version"`
	Modules []*flowModuleSummary `json:"modules"`
}

type flowModuleResponse struct {
	VersionID    string `json:"version_id"`
	ModuleID     string `json:"module_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ModuleType   string `json:"module_type"`
	Introduction string `json:"introduction"`
	Principle    string `json:"principle"`
	Constraints  string `json:"constraints"`
	ExternalLink string `json:"external_link,omitempty"`
	PositionX    int32  `json:"position_x"`
	PositionY    int32  `json:"position_y"`
}

func convertFlowModule(m *store.FlowModule) *flowModuleResponse {
	return &flowModuleResponse{
		VersionID:    m.VersionID,
		ModuleID:     m.ModuleID,
		Title:        m.Title,
		Description:  m.Description,
		ModuleType:   m.ModuleType,
		Introduction: m.Introduction,
		Principle:    m.Principle,
		Constraints:  m.Constraints,
		ExternalLink: m.ExternalLink,
		PositionX:    m.PositionX,
		PositionY:    m.PositionY,
	}
}

type flowVersionRequest struct {
	VersionID   string `json:"version_id" validate:"required,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	IsDefault   bool   `json:"is_default"`
}

type updateFlowVersionRequest struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
	IsDefault   *bool   `json:"is_default"`
}

type flowModuleRequest struct {
	VersionID    string `json:"version_id" validate:"required"`
	ModuleID     string `json:"module_id" validate:"required,max=64"`
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description"`
	ModuleType   string `json:"module_type"`
	Introduction string `json:"introduction"`
	Principle    string `json:"principle"`
	Constraints  string `json:"constraints"`
	ExternalLink string `json:"external_link" validate:"omitempty,url"`
	PositionX    int32  `json:"position_x"`
	PositionY    int32  `json:"position_y"`
}

type updateFlowModuleRequest struct {
	Title        *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description  *string `json:"description"`
	ModuleType   *string `json:"module_type"`
	Introduction *string `json:"introduction"`
	Principle    *string `json:"principle"`
	Constraints  *string `json:"constraints"`
	ExternalLink *string `json:"external_link" validate:"omitempty,url"`
	PositionX    *int32  `json:"position_x"`
	PositionY    *int32  `json:"position_y"`
}

// ListFlowArchitectures returns the pipeline diagram lanes keyed by domain.
func (s *APIV1Service) ListFlowArchitectures(c echo.Context) error {
	ctx := c.Request().Context()
	result, err := cache.ReadThrough(ctx, s.Cache, cache.KeyFlowArchitectures.Format(), cache.ClassFlow.TTL(),
		func(ctx context.Context) (map[string]*flowArchitectureView, error) {
			active := true
			architectures, err := s.Store.ListFlowArchitectures(ctx, &store.FindFlowArchitecture{IsActive: &active})
			if err != nil {
				return nil, apierrors.Internal("failed to list flow architectures", err)
			}
			items, err := s.Store.ListFlowArchitectureItems(ctx, &store.FindFlowArchitecture{IsActive: &active})
			if err != nil {
				return nil, apierrors.Internal("failed to list flow architecture items", err)
			}

			result := make(map[string]*flowArchitectureView, len(architectures))
			for _, a := range architectures {
				result[a.Domain] = &flowArchitectureView{Title: a.Title, Items: []*flowArchitectureItem{}}
			}
			for _, item := range items {
				if view, ok := result[item.Domain]; ok {
					view.Items = append(view.Items, &flowArchitectureItem{
						ID:          item.ItemID,
						Title:       item.Title,
						Description: item.Description,
						Type:        item.ItemType,
					})
				}
			}
			return result, nil
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// GetFlowVersion returns an active version with its modules.
func (s *APIV1Service) GetFlowVersion(c echo.Context) error {
	ctx := c.Request().Context()
	versionID := c.Param("id")
	result, err := cache.ReadThrough(ctx, s.Cache, cache.KeyFlowVersion.Format(versionID), cache.ClassFlow.TTL(),
		func(ctx context.Context) (*flowVersionView, error) {
			active := true
			version, err := s.Store.GetFlowVersion(ctx, &store.FindFlowVersion{VersionID: &versionID, IsActive: &active})
			if err != nil {
				return nil, apierrors.Internal("failed to get flow version", err)
			}
			if version == nil {
				return nil, apierrors.NotFound("flow version not found").WithContext("version_id", versionID)
			}
			modules, err := s.Store.ListFlowModules(ctx, &store.FindFlowModule{VersionID: &versionID})
			if err != nil {
				return nil, apierrors.Internal("failed to list flow modules", err)
			}

			view := &flowVersionView{
				Version: convertFlowVersion(version),
				Modules: make([]*flowModuleSummary, 0, len(modules)),
			}
			for _, m := range modules {
				view.Modules = append(view.Modules, &flowModuleSummary{
					ModuleID:    m.ModuleID,
					Title:       m.Title,
					Description: m.Description,
					ModuleType:  m.ModuleType,
					PositionX:   m.PositionX,
					PositionY:   m.PositionY,
				})
			}
			return view, nil
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) GetFlowModule(c echo.Context) error {
	ctx := c.Request().Context()
	moduleID := c.Param("id")
	result, err := cache.ReadThrough(ctx, s.Cache, cache.KeyFlowModule.Format(moduleID), cache.ClassFlow.TTL(),
		func(ctx context.Context) (*flowModuleResponse, error) {
			module, err := s.getFlowModule(ctx, moduleID)
			if err != nil {
				return nil, err
			}
			return convertFlowModule(module), nil
		})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIV1Service) getFlowVersion(ctx context.Context, versionID string) (*store.FlowVersion, error) {
	version, err := s.Store.GetFlowVersion(ctx, &store.FindFlowVersion{VersionID: &versionID})
	if err != nil {
		return nil, apierrors.Internal("failed to get flow version", err)
	}
	if version == nil {
		return nil, apierrors.NotFound("flow version not found").WithContext("version_id", versionID)
	}
	return version, nil
}

func (s *APIV1Service) getFlowModule(ctx context.Context, moduleID string) (*store.FlowModule, error) {
	module, err := s.Store.GetFlowModule(ctx, &store.FindFlowModule{ModuleID: &moduleID})
	if err != nil {
		return nil, apierrors.Internal("failed to get flow module", err)
	}
	if module == nil {
		return nil, apierrors.NotFound("flow module not found").WithContext("module_id", moduleID)
	}
	return module, nil
}

// CreateFlowVersion stores a new version. A default version takes the
// default flag from every other version.
func (s *APIV1Service) CreateFlowVersion(c echo.Context) error {
	ctx := c.Request().Context()
	var req flowVersionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	existing, err := s.Store.GetFlowVersion(ctx, &store.FindFlowVersion{VersionID: &req.VersionID})
	if err != nil {
		return apierrors.Internal("failed to get flow version", err)
	}
	if existing != nil {
		return apierrors.Conflict("version id already exists").WithContext("version_id", req.VersionID)
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	version, err := s.Store.CreateFlowVersion(ctx, &store.FlowVersion{
		VersionID:   req.VersionID,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    isActive,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apierrors.Conflict("version id already exists").WithContext("version_id", req.VersionID)
		}
		return apierrors.Internal("failed to create flow version", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return c.JSON(http.StatusCreated, convertFlowVersion(version))
}

func (s *APIV1Service) UpdateFlowVersion(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateFlowVersionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := s.getFlowVersion(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	updated, err := s.Store.UpdateFlowVersion(ctx, &store.UpdateFlowVersion{
		ID:          version.ID,
		Title:       req.Title,
		Description: req.Description,
		IsActive:    req.IsActive,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		return apierrors.Internal("failed to update flow version", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return c.JSON(http.StatusOK, convertFlowVersion(updated))
}

// DeleteFlowVersion refuses to delete a version that still has modules.
func (s *APIV1Service) DeleteFlowVersion(c echo.Context) error {
	ctx := c.Request().Context()
	version, err := s.getFlowVersion(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	modules, err := s.Store.ListFlowModules(ctx, &store.FindFlowModule{VersionID: &version.VersionID})
	if err != nil {
		return apierrors.Internal("failed to list flow modules", err)
	}
	if len(modules) > 0 {
		return apierrors.InvalidArgument("version still has modules").
			WithContext("version_id", version.VersionID).
			WithContext("modules", len(modules))
	}
	if err := s.Store.DeleteFlowVersion(ctx, &store.DeleteFlowVersion{ID: version.ID}); err != nil {
		return apierrors.Internal("failed to delete flow version", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return message(c, "flow version deleted")
}

// CreateFlowModule adds a module to an active version. Module ids are unique
// across versions.
func (s *APIV1Service) CreateFlowModule(c echo.Context) error {
	ctx := c.Request().Context()
	var req flowModuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	active := true
	version, err := s.Store.GetFlowVersion(ctx, &store.FindFlowVersion{VersionID: &req.VersionID, IsActive: &active})
	if err != nil {
		return apierrors.Internal("failed to get flow version", err)
	}
	if version == nil {
		return apierrors.InvalidArgument("version does not exist").WithContext("version_id", req.VersionID)
	}
	existing, err := s.Store.GetFlowModule(ctx, &store.FindFlowModule{ModuleID: &req.ModuleID})
	if err != nil {
		return apierrors.Internal("failed to get flow module", err)
	}
	if existing != nil {
		return apierrors.Conflict("module id already exists").WithContext("module_id", req.ModuleID)
	}

	module, err := s.Store.CreateFlowModule(ctx, &store.FlowModule{
		VersionID:    req.VersionID,
		ModuleID:     req.ModuleID,
		Title:        req.Title,
		Description:  req.Description,
		ModuleType:   req.ModuleType,
		Introduction: req.Introduction,
		Principle:    req.Principle,
		Constraints:  req.Constraints,
		ExternalLink: req.ExternalLink,
		PositionX:    req.PositionX,
		PositionY:    req.PositionY,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return apierrors.Conflict("module id already exists").WithContext("module_id", req.ModuleID)
		}
		return apierrors.Internal("failed to create flow module", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return c.JSON(http.StatusCreated, convertFlowModule(module))
}

func (s *APIV1Service) UpdateFlowModule(c echo.Context) error {
	ctx := c.Request().Context()
	var req updateFlowModuleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	module, err := s.getFlowModule(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	updated, err := s.Store.UpdateFlowModule(ctx, &store.UpdateFlowModule{
		ID:           module.ID,
		Title:        req.Title,
		Description:  req.Description,
		ModuleType:   req.ModuleType,
		Introduction: req.Introduction,
		Principle:    req.Principle,
		Constraints:  req.Constraints,
		ExternalLink: req.ExternalLink,
		PositionX:    req.PositionX,
		PositionY:    req.PositionY,
	})
	if err != nil {
		return apierrors.Internal("failed to update flow module", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return c.JSON(http.StatusOK, convertFlowModule(updated))
}

func (s *APIV1Service) DeleteFlowModule(c echo.Context) error {
	ctx := c.Request().Context()
	module, err := s.getFlowModule(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.Store.DeleteFlowModule(ctx, &store.DeleteFlowModule{ID: module.ID}); err != nil {
		return apierrors.Internal("failed to delete flow module", err)
	}
	s.invalidate(c, cache.ClassFlow)
	return message(c, "flow module deleted")
}
