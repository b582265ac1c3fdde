package service

import (
	"context"
	"fmt"

	"github.com/avkuzmin/logistics-backend/internal/model"
	"github.com/avkuzmin/logistics-backend/internal/repository"
)

type ProfileInput struct {
	Username  string
	FirstName string
	LastName  string
}

type UserService interface {
	// GetOrCreate upserts the Telegram profile and returns the stored user,
	// preserving any previously assigned role.
	GetOrCreate(ctx context.Context, id uint64, username, firstName, lastName string) (*model.User, error)
	Get(ctx context.Context, id uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*model.User, error)
	List(ctx context.Context, actor Actor, role model.Role) ([]model.User, error)
	SetRole(ctx context.Context, actor Actor, userID uint64, role model.Role) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) GetOrCreate(ctx context.Context, id uint64, username, firstName, lastName string) (*model.User, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidArgument)
	}
	u := &model.User{
		ID:        id,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Role:      model.RoleClient,
	}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, storeErr(err)
	}
	return s.Get(ctx, id)
}

func (s *userService) Get(ctx context.Context, id uint64) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*model.User, error) {
	if err := s.users.UpdateProfile(ctx, actor.ID, in.Username, in.FirstName, in.LastName); err != nil {
		return nil, storeErr(err)
	}
	return s.Get(ctx, actor.ID)
}

func (s *userService) List(ctx context.Context, actor Actor, role model.Role) ([]model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if role != "" && !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	list, err := s.users.List(ctx, role)
	if err != nil {
		return nil, storeErr(err)
	}
	return list, nil
}

func (s *userService) SetRole(ctx context.Context, actor Actor, userID uint64, role model.Role) (*model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	ok, err := s.users.SetRole(ctx, userID, role)
	if err != nil {
		return nil, storeErr(err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	return s.Get(ctx, userID)
}
