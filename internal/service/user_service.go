package service

import (
	"errors"
	"fmt"
	"strings"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrRoleNotFound = errors.New("role not found")

// UserService manages the operators whose ids end up on ledger entries.
type UserService interface {
	CreateUser(req *CreateUserRequest, actor Actor) (*model.UserResponse, error)
	SetActive(userID uuid.UUID, active bool, actor Actor) (*model.UserResponse, error)
	GetAllUsers() ([]model.UserResponse, error)
	GetUserByID(id uuid.UUID) (*model.UserResponse, error)
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
	RoleCode string `json:"role_code" validate:"required"`
}

type userService struct {
	userRepo repository.UserRepository
	roleRepo repository.RoleRepository
}

func NewUserService(userRepo repository.UserRepository, roleRepo repository.RoleRepository) UserService {
	return &userService{userRepo: userRepo, roleRepo: roleRepo}
}

func (s *userService) CreateUser(req *CreateUserRequest, actor Actor) (*model.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrDuplicateEmail
	}

	role, err := s.roleRepo.FindByCode(req.RoleCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("load role: %w", err)
	}

	user := &model.User{
		Email:    email,
		FullName: req.FullName,
		RoleID:   &role.ID,
		IsActive: true,
	}
	user.CreatedBy = actor.String()
	user.UpdatedBy = actor.String()
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	user.Role = role
	response := user.ToResponse()
	return &response, nil
}

// SetActive enables or disables a user. Disabling also ends the current
// session.
func (s *userService) SetActive(userID uuid.UUID, active bool, actor Actor) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user.IsActive = active
	user.UpdatedBy = actor.String()
	if !active {
		user.TokenVersion = uuid.New().String()
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	response := user.ToResponse()
	return &response, nil
}

func (s *userService) GetAllUsers() ([]model.UserResponse, error) {
	users, err := s.userRepo.FindAll()
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, nil
}

func (s *userService) GetUserByID(id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	response := user.ToResponse()
	return &response, nil
}
