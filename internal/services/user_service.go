package services

import (
	"scipedia/internal/repositories"
	"scipedia/pkg/apperrors"
)

// UserList is the paginated listing payload.
type UserList struct {
	Users       []map[string]interface{} `json:"users"`
	TotalPages  int64                    `json:"totalPages"`
	CurrentPage int                      `json:"currentPage"`
}

type UserService interface {
	List(email string, page, limit int) (*UserList, error)
	GetByEmail(email string) (map[string]interface{}, error)
	Create(fields map[string]interface{}) (string, error)
	Update(id string, fields map[string]interface{}) error
	Delete(id string) error
	CheckEmail(email string) (bool, error)
	GetRole(email string) (string, error)
}

type userService struct {
	users repositories.UserRepository
}

func NewUserService(users repositories.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) List(email string, page, limit int) (*UserList, error) {
	page, limit = clampPaging(page, limit)

	users, total, err := s.users.List(email, page, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	docs := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		docs = append(docs, users[i].Document())
	}
	return &UserList{
		Users:       docs,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *userService) GetByEmail(email string) (map[string]interface{}, error) {
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return nil, mapUserError(err)
	}
	return user.Document(), nil
}

func (s *userService) Create(fields map[string]interface{}) (string, error) {
	stripIdentityFields(fields)
	id, err := s.users.Insert(fields)
	if err != nil {
		if err == repositories.ErrUserAlreadyExists {
			return "", apperrors.NewBadRequestError("A user with this email already exists.")
		}
		return "", apperrors.NewDatabaseError(err)
	}
	return id, nil
}

func (s *userService) Update(id string, fields map[string]interface{}) error {
	stripIdentityFields(fields)
	if len(fields) == 0 {
		return apperrors.NewBadRequestError("No fields to update.")
	}
	if err := s.users.Update(id, fields); err != nil {
		if err == repositories.ErrUserAlreadyExists {
			return apperrors.NewBadRequestError("A user with this email already exists.")
		}
		return mapUserError(err)
	}
	return nil
}

func (s *userService) Delete(id string) error {
	if err := s.users.Delete(id); err != nil {
		return mapUserError(err)
	}
	return nil
}

func (s *userService) CheckEmail(email string) (bool, error) {
	if email == "" {
		return false, apperrors.NewBadRequestError("Email is required.")
	}
	exists, err := s.users.EmailExists(email)
	if err != nil {
		return false, apperrors.NewDatabaseError(err)
	}
	return exists, nil
}

func (s *userService) GetRole(email string) (string, error) {
	if email == "" {
		return "", apperrors.NewBadRequestError("Email is required.")
	}
	role, err := s.users.RoleByEmail(email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return "", apperrors.NewNotFoundError("User not found or role not set")
		}
		return "", apperrors.NewDatabaseError(err)
	}
	if role == "" {
		return "", apperrors.NewNotFoundError("User not found or role not set")
	}
	return role, nil
}

func mapUserError(err error) error {
	if err == repositories.ErrUserNotFound {
		return apperrors.NewNotFoundError("User not found")
	}
	return apperrors.NewDatabaseError(err)
}
