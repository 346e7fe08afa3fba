package store

import (
	"context"
	"strings"
)

type FlowVersion struct {
	ID          int32
	VersionID   string
	Title       string
	Description string
	IsActive    bool
	// IsDefault is held by at most one version.
	IsDefault bool
	CreatedTs int64
	UpdatedTs int64
}

type FindFlowVersion struct {
	ID        *int32
	VersionID *string
	IsActive  *bool
	IsDefault *bool
}

type UpdateFlowVersion struct {
	ID          int32
	Title       *string
	Description *string
	IsActive    *bool
	IsDefault   *bool
	UpdatedTs   *int64
}

type DeleteFlowVersion struct {
	ID int32
}

type FlowModule struct {
	ID           int32
	VersionID    string
	ModuleID     string
	Title        string
	Description  string
	ModuleType   string
	Introduction string
	Principle    string
	Constraints  string
	ExternalLink string
	PositionX    int32
	PositionY    int32
	CreatedTs    int64
	UpdatedTs    int64

	// VersionTitle is filled on list queries joined with the version.
	VersionTitle string
}

// SearchText exposes the fields relevance ranking looks at. The body is the
// introduction followed by the principle.
func (m *FlowModule) SearchText() (title, description, body string) {
	parts := make([]string, 0, 2)
	for _, s := range []string{m.Introduction, m.Principle} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return m.Title, m.Description, strings.Join(parts, "\n")
}

type FindFlowModule struct {
	ID        *int32
	VersionID *string
	ModuleID  *string
	// Keywords match case-insensitively against title, description,
	// introduction and principle. Any keyword in any field matches.
	Keywords      []string
	TitleContains *string
	// ActiveVersionOnly restricts results to modules of active versions.
	ActiveVersionOnly bool
	Pagination
}

type UpdateFlowModule struct {
	ID           int32
	Title        *string
	Description  *string
	ModuleType   *string
	Introduction *string
	Principle    *string
	Constraints  *string
	ExternalLink *string
	PositionX    *int32
	PositionY    *int32
	UpdatedTs    *int64
}

type DeleteFlowModule struct {
	ID int32
}

// FlowArchitecture is one swim lane of the pipeline diagram, such as "raw" or "yuv".
type FlowArchitecture struct {
	ID        int32
	Domain    string
	Title     string
	SortOrder int32
	IsActive  bool
}

type FlowArchitectureItem struct {
	ID          int32
	Domain      string
	ItemID      string
	Title       string
	Description string
	ItemType    string
	SortOrder   int32
	IsActive    bool
}

type FindFlowArchitecture struct {
	Domain   *string
	IsActive *bool
}

func (s *Store) CreateFlowVersion(ctx context.Context, create *FlowVersion) (*FlowVersion, error) {
	return s.driver.CreateFlowVersion(ctx, create)
}

func (s *Store) ListFlowVersions(ctx context.Context, find *FindFlowVersion) ([]*FlowVersion, error) {
	return s.driver.ListFlowVersions(ctx, find)
}

func (s *Store) GetFlowVersion(ctx context.Context, find *FindFlowVersion) (*FlowVersion, error) {
	list, err := s.ListFlowVersions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateFlowVersion applies update. Setting IsDefault clears the flag on every other version.
func (s *Store) UpdateFlowVersion(ctx context.Context, update *UpdateFlowVersion) (*FlowVersion, error) {
	return s.driver.UpdateFlowVersion(ctx, update)
}

func (s *Store) DeleteFlowVersion(ctx context.Context, delete *DeleteFlowVersion) error {
	return s.driver.DeleteFlowVersion(ctx, delete)
}

func (s *Store) CreateFlowModule(ctx context.Context, create *FlowModule) (*FlowModule, error) {
	return s.driver.CreateFlowModule(ctx, create)
}

func (s *Store) ListFlowModules(ctx context.Context, find *FindFlowModule) ([]*FlowModule, error) {
	return s.driver.ListFlowModules(ctx, find)
}

func (s *Store) GetFlowModule(ctx context.Context, find *FindFlowModule) (*FlowModule, error) {
	list, err := s.ListFlowModules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateFlowModule(ctx context.Context, update *UpdateFlowModule) (*FlowModule, error) {
	return s.driver.UpdateFlowModule(ctx, update)
}

func (s *Store) DeleteFlowModule(ctx context.Context, delete *DeleteFlowModule) error {
	return s.driver.DeleteFlowModule(ctx, delete)
}

func (s *Store) ListFlowArchitectures(ctx context.Context, find *FindFlowArchitecture) ([]*FlowArchitecture, error) {
	return s.driver.ListFlowArchitectures(ctx, find)
}

func (s *Store) ListFlowArchitectureItems(ctx context.Context, find *FindFlowArchitecture) ([]*FlowArchitectureItem, error) {
	return s.driver.ListFlowArchitectureItems(ctx, find)
}
