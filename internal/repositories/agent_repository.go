package repositories

import (
	"errors"

	"scipedia/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrAgentNotFound = errors.New("agent not found")

type AgentRepository interface {
	List(nameFilter string, page, limit int) ([]models.Agent, int64, error)
	FindByID(id string) (*models.Agent, error)
	Insert(fields map[string]interface{}) (string, error)
	Update(id string, fields map[string]interface{}) error
	Delete(id string) error

	PushAttachment(id string, kind models.FileKind, att models.Attachment) error
	PullAttachmentByURL(id, url string) error
	IsAttachmentURLReferenced(url string) (bool, error)
}

type AgentRepositoryImpl struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &AgentRepositoryImpl{db: db}
}

func (r *AgentRepositoryImpl) List(nameFilter string, page, limit int) ([]models.Agent, int64, error) {
	query := r.db.Model(&models.Agent{})
	if nameFilter != "" {
		query = query.Where("agent_name ILIKE ?", "%"+nameFilter+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var agents []models.Agent
	offset := (page - 1) * limit
	err := query.Order("created_at").Limit(limit).Offset(offset).Find(&agents).Error
	return agents, total, err
}

func (r *AgentRepositoryImpl) FindByID(id string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.First(&agent, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return &agent, nil
}

// Insert stores the field bag verbatim, lifting agentName for the list filter.
func (r *AgentRepositoryImpl) Insert(fields map[string]interface{}) (string, error) {
	agent := &models.Agent{
		RecordBase: models.RecordBase{
			ID:     uuid.NewString(),
			Fields: datatypes.JSONMap(fields),
		},
		AgentName: stringField(fields, "agentName"),
	}

	if err := r.db.Create(agent).Error; err != nil {
		return "", err
	}
	return agent.ID, nil
}

func (r *AgentRepositoryImpl) Update(id string, fields map[string]interface{}) error {
	payload, err := jsonMap(fields)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"fields": gorm.Expr("fields || ?::jsonb", payload),
	}
	if name := stringField(fields, "agentName"); name != "" {
		updates["agent_name"] = name
	}

	result := r.db.Model(&models.Agent{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepositoryImpl) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&models.Agent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepositoryImpl) PushAttachment(id string, kind models.FileKind, att models.Attachment) error {
	affected, err := pushAttachment(r.db, &models.Agent{}, "id", id, kind, att)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

func (r *AgentRepositoryImpl) PullAttachmentByURL(id, url string) error {
	return pullAttachmentByURL(r.db, models.Agent{}.TableName(), id, url)
}

func (r *AgentRepositoryImpl) IsAttachmentURLReferenced(url string) (bool, error) {
	return urlReferenced(r.db, &models.Agent{}, url)
}
