package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	DeleteUser(ctx context.Context, delete *DeleteUser) error

	// KnowledgeCategory model related methods.
	CreateKnowledgeCategory(ctx context.Context, create *KnowledgeCategory) (*KnowledgeCategory, error)
	ListKnowledgeCategories(ctx context.Context, find *FindKnowledgeCategory) ([]*KnowledgeCategory, error)
	UpdateKnowledgeCategory(ctx context.Context, update *UpdateKnowledgeCategory) (*KnowledgeCategory, error)
	DeleteKnowledgeCategory(ctx context.Context, delete *DeleteKnowledgeCategory) error

	// KnowledgeItem model related methods.
	CreateKnowledgeItem(ctx context.Context, create *KnowledgeItem) (*KnowledgeItem, error)
	ListKnowledgeItems(ctx context.Context, find *FindKnowledgeItem) ([]*KnowledgeItem, error)
	UpdateKnowledgeItem(ctx context.Context, update *UpdateKnowledgeItem) (*KnowledgeItem, error)
	DeleteKnowledgeItem(ctx context.Context, delete *DeleteKnowledgeItem) error

	// KnowledgeDetail model related methods.
	CreateKnowledgeDetail(ctx context.Context, create *KnowledgeDetail) (*KnowledgeDetail, error)
	ListKnowledgeDetails(ctx context.Context, find *FindKnowledgeDetail) ([]*KnowledgeDetail, error)
	UpdateKnowledgeDetail(ctx context.Context, update *UpdateKnowledgeDetail) (*KnowledgeDetail, error)
	DeleteKnowledgeDetail(ctx context.Context, delete *DeleteKnowledgeDetail) error

	// FlowVersion model related methods.
	CreateFlowVersion(ctx context.Context, create *FlowVersion) (*FlowVersion, error)
	ListFlowVersions(ctx context.Context, find *FindFlowVersion) ([]*FlowVersion, error)
	UpdateFlowVersion(ctx context.Context, update *UpdateFlowVersion) (*FlowVersion, error)
	DeleteFlowVersion(ctx context.Context, delete *DeleteFlowVersion) error

	// FlowModule model related methods.
	CreateFlowModule(ctx context.Context, create *FlowModule) (*FlowModule, error)
	ListFlowModules(ctx context.Context, find *FindFlowModule) ([]*FlowModule, error)
	UpdateFlowModule(ctx context.Context, update *UpdateFlowModule) (*FlowModule, error)
	DeleteFlowModule(ctx context.Context, delete *DeleteFlowModule) error

	// FlowArchitecture model related methods.
	ListFlowArchitectures(ctx context.Context, find *FindFlowArchitecture) ([]*FlowArchitecture, error)
	ListFlowArchitectureItems(ctx context.Context, find *FindFlowArchitecture) ([]*FlowArchitectureItem, error)

	// ChatMessage model related methods.
	CreateChatMessage(ctx context.Context, create *ChatMessage) (*ChatMessage, error)
	ListChatMessages(ctx context.Context, find *FindChatMessage) ([]*ChatMessage, error)
	DeleteChatMessages(ctx context.Context, delete *DeleteChatMessage) (int64, error)
	ListChatSessions(ctx context.Context, find *FindChatSession) ([]*ChatSession, error)

	// SearchLog model related methods.
	CreateSearchLog(ctx context.Context, create *SearchLog) (*SearchLog, error)
	ListSearchLogs(ctx context.Context, find *FindSearchLog) ([]*SearchLog, error)
	ListPopularQueries(ctx context.Context, limit int) ([]*PopularQuery, error)

	CountRecords(ctx context.Context, count *CountRecords) (int64, error)
}
