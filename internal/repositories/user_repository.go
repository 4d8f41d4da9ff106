package repositories

import (
	"errors"

	"scipedia/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	List(emailFilter string, page, limit int) ([]models.User, int64, error)
	FindByID(id string) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	Insert(fields map[string]interface{}) (string, error)
	Update(id string, fields map[string]interface{}) error
	Delete(id string) error

	PushAttachmentByEmail(email string, kind models.FileKind, att models.Attachment) error
	PullAttachmentByURL(id, url string) error

	EmailExists(email string) (bool, error)
	RoleByEmail(email string) (string, error)
	IsAttachmentURLReferenced(url string) (bool, error)
}

type UserRepositoryImpl struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) List(emailFilter string, page, limit int) ([]models.User, int64, error) {
	query := r.db.Model(&models.User{})
	if emailFilter != "" {
		query = query.Where("email ILIKE ?", "%"+emailFilter+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	offset := (page - 1) * limit
	err := query.Order("created_at").Limit(limit).Offset(offset).Find(&users).Error
	return users, total, err
}

func (r *UserRepositoryImpl) FindByID(id string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Insert stores the field bag verbatim, lifting email into its own column.
func (r *UserRepositoryImpl) Insert(fields map[string]interface{}) (string, error) {
	user := &models.User{
		RecordBase: models.RecordBase{
			ID:     uuid.NewString(),
			Fields: datatypes.JSONMap(fields),
		},
		Email: stringField(fields, "email"),
	}

	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrUserAlreadyExists
		}
		return "", err
	}
	return user.ID, nil
}

// Update merges the field bag into the stored one in a single UPDATE.
// Callers strip identity fields before this point.
func (r *UserRepositoryImpl) Update(id string, fields map[string]interface{}) error {
	payload, err := jsonMap(fields)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"fields": gorm.Expr("fields || ?::jsonb", payload),
	}
	if email := stringField(fields, "email"); email != "" {
		updates["email"] = email
	}

	result := r.db.Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PushAttachmentByEmail appends to the kind's array on the user matched by
// email. The upload routes key users by email, not id.
func (r *UserRepositoryImpl) PushAttachmentByEmail(email string, kind models.FileKind, att models.Attachment) error {
	affected, err := pushAttachment(r.db, &models.User{}, "email", email, kind, att)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepositoryImpl) PullAttachmentByURL(id, url string) error {
	return pullAttachmentByURL(r.db, models.User{}.TableName(), id, url)
}

func (r *UserRepositoryImpl) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// RoleByEmail returns the user's role from the field bag, or "" when unset.
func (r *UserRepositoryImpl) RoleByEmail(email string) (string, error) {
	user, err := r.FindByEmail(email)
	if err != nil {
		return "", err
	}
	return stringField(user.Fields, "role"), nil
}

func (r *UserRepositoryImpl) IsAttachmentURLReferenced(url string) (bool, error) {
	return urlReferenced(r.db, &models.User{}, url)
}
