package store

import "context"

// KnowledgeStatus tracks the authoring state of a knowledge item.
type KnowledgeStatus string

const (
	KnowledgeStatusCompleted KnowledgeStatus = "completed"
	KnowledgeStatusPending   KnowledgeStatus = "pending"
	KnowledgeStatusFuture    KnowledgeStatus = "future"
)

// Valid reports whether s is a known status.
func (s KnowledgeStatus) Valid() bool {
	switch s {
	case KnowledgeStatusCompleted, KnowledgeStatusPending, KnowledgeStatusFuture:
		return true
	}
	return false
}

type KnowledgeCategory struct {
	ID int32
	// CategoryID is the stable slug items refer to.
	CategoryID  string
	Title       string
	Icon        string
	Description string
	SortOrder   int32
	IsActive    bool
	CreatedTs   int64
	UpdatedTs   int64
}

type FindKnowledgeCategory struct {
	ID         *int32
	CategoryID *string
	IsActive   *bool
}

type UpdateKnowledgeCategory struct {
	ID          int32
	Title       *string
	Icon        *string
	Description *string
	SortOrder   *int32
	IsActive    *bool
	UpdatedTs   *int64
}

type DeleteKnowledgeCategory struct {
	ID int32
}

type KnowledgeItem struct {
	ID           string
	CategoryID   string
	Title        string
	Description  string
	Status       KnowledgeStatus
	Content      string
	ExternalLink string
	SortOrder    int32
	CreatedTs    int64
	UpdatedTs    int64

	// CategoryTitle is filled on list queries joined with the category.
	CategoryTitle string
}

// SearchText exposes the fields relevance ranking looks at.
func (i *KnowledgeItem) SearchText() (title, description, body string) {
	return i.Title, i.Description, i.Content
}

type FindKnowledgeItem struct {
	ID         *string
	CategoryID *string
	Status     *KnowledgeStatus
	// Keywords match case-insensitively against title, description and content.
	// An item matches when any keyword hits any field.
	Keywords []string
	// TitleContains matches the title only.
	TitleContains *string
	// ActiveCategoryOnly restricts results to items whose category is active.
	ActiveCategoryOnly bool
	// OrderByUpdated sorts newest first instead of by sort order.
	OrderByUpdated bool
	Pagination
}

type UpdateKnowledgeItem struct {
	ID           string
	CategoryID   *string
	Title        *string
	Description  *string
	Status       *KnowledgeStatus
	Content      *string
	ExternalLink *string
	SortOrder    *int32
	UpdatedTs    *int64
}

type DeleteKnowledgeItem struct {
	ID string
}

type KnowledgeDetail struct {
	ID          string
	KnowledgeID string
	Title       string
	Content     string
	SortOrder   int32
	CreatedTs   int64
	UpdatedTs   int64
}

type FindKnowledgeDetail struct {
	ID          *string
	KnowledgeID *string
}

type UpdateKnowledgeDetail struct {
	ID        string
	Title     *string
	Content   *string
	SortOrder *int32
	UpdatedTs *int64
}

type DeleteKnowledgeDetail struct {
	ID string
}

func (s *Store) CreateKnowledgeCategory(ctx context.Context, create *KnowledgeCategory) (*KnowledgeCategory, error) {
	return s.driver.CreateKnowledgeCategory(ctx, create)
}

func (s *Store) ListKnowledgeCategories(ctx context.Context, find *FindKnowledgeCategory) ([]*KnowledgeCategory, error) {
	return s.driver.ListKnowledgeCategories(ctx, find)
}

func (s *Store) GetKnowledgeCategory(ctx context.Context, find *FindKnowledgeCategory) (*KnowledgeCategory, error) {
	list, err := s.ListKnowledgeCategories(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateKnowledgeCategory(ctx context.Context, update *UpdateKnowledgeCategory) (*KnowledgeCategory, error) {
	return s.driver.UpdateKnowledgeCategory(ctx, update)
}

func (s *Store) DeleteKnowledgeCategory(ctx context.Context, delete *DeleteKnowledgeCategory) error {
	return s.driver.DeleteKnowledgeCategory(ctx, delete)
}

func (s *Store) CreateKnowledgeItem(ctx context.Context, create *KnowledgeItem) (*KnowledgeItem, error) {
	return s.driver.CreateKnowledgeItem(ctx, create)
}

func (s *Store) ListKnowledgeItems(ctx context.Context, find *FindKnowledgeItem) ([]*KnowledgeItem, error) {
	return s.driver.ListKnowledgeItems(ctx, find)
}

func (s *Store) GetKnowledgeItem(ctx context.Context, find *FindKnowledgeItem) (*KnowledgeItem, error) {
	list, err := s.ListKnowledgeItems(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateKnowledgeItem(ctx context.Context, update *UpdateKnowledgeItem) (*KnowledgeItem, error) {
	return s.driver.UpdateKnowledgeItem(ctx, update)
}

// DeleteKnowledgeItem removes the item together with its details.
func (s *Store) DeleteKnowledgeItem(ctx context.Context, delete *DeleteKnowledgeItem) error {
	return s.driver.DeleteKnowledgeItem(ctx, delete)
}

func (s *Store) CreateKnowledgeDetail(ctx context.Context, create *KnowledgeDetail) (*KnowledgeDetail, error) {
	return s.driver.CreateKnowledgeDetail(ctx, create)
}

func (s *Store) ListKnowledgeDetails(ctx context.Context, find *FindKnowledgeDetail) ([]*KnowledgeDetail, error) {
	return s.driver.ListKnowledgeDetails(ctx, find)
}

func (s *Store) GetKnowledgeDetail(ctx context.Context, find *FindKnowledgeDetail) (*KnowledgeDetail, error) {
	list, err := s.ListKnowledgeDetails(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateKnowledgeDetail(ctx context.Context, update *UpdateKnowledgeDetail) (*KnowledgeDetail, error) {
	return s.driver.UpdateKnowledgeDetail(ctx, update)
}

func (s *Store) DeleteKnowledgeDetail(ctx context.Context, delete *DeleteKnowledgeDetail) error {
	return s.driver.DeleteKnowledgeDetail(ctx, delete)
}
