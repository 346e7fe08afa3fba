package store

import "context"

// Role is the access level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID           int32
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	CreatedTs    int64
	UpdatedTs    int64
}

type FindUser struct {
	ID       *int32
	Username *string
	Email    *string
	Role     *Role
	IsActive *bool
	Pagination
}

type UpdateUser struct {
	ID           int32
	Username     *string
	Email        *string
	PasswordHash *string
	Role         *Role
	IsActive     *bool
	UpdatedTs    *int64
}

type DeleteUser struct {
	ID int32
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

// GetUser returns the first user matching find, or nil.
func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

func (s *Store) DeleteUser(ctx context.Context, delete *DeleteUser) error {
	return s.driver.DeleteUser(ctx, delete)
}
