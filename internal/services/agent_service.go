package services

import (
	"scipedia/internal/repositories"
	"scipedia/pkg/apperrors"
)

// AgentList is the paginated listing payload.
type AgentList struct {
	Agents      []map[string]interface{} `json:"agents"`
	TotalPages  int64                    `json:"totalPages"`
	CurrentPage int                      `json:"currentPage"`
}

type AgentService interface {
	List(agentName string, page, limit int) (*AgentList, error)
	Get(id string) (map[string]interface{}, error)
	Create(fields map[string]interface{}) (string, error)
	Update(id string, fields map[string]interface{}) error
	Delete(id string) error
}

type agentService struct {
	agents repositories.AgentRepository
}

func NewAgentService(agents repositories.AgentRepository) AgentService {
	return &agentService{agents: agents}
}

func (s *agentService) List(agentName string, page, limit int) (*AgentList, error) {
	page, limit = clampPaging(page, limit)

	agents, total, err := s.agents.List(agentName, page, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	docs := make([]map[string]interface{}, 0, len(agents))
	for i := range agents {
		docs = append(docs, agents[i].Document())
	}
	return &AgentList{
		Agents:      docs,
		TotalPages:  totalPages(total, limit),
		CurrentPage: page,
	}, nil
}

func (s *agentService) Get(id string) (map[string]interface{}, error) {
	agent, err := s.agents.FindByID(id)
	if err != nil {
		return nil, mapAgentError(err)
	}
	return agent.Document(), nil
}

func (s *agentService) Create(fields map[string]interface{}) (string, error) {
	stripIdentityFields(fields)
	id, err := s.agents.Insert(fields)
	if err != nil {
		return "", apperrors.NewDatabaseError(err)
	}
	return id, nil
}

func (s *agentService) Update(id string, fields map[string]interface{}) error {
	stripIdentityFields(fields)
	if len(fields) == 0 {
		return apperrors.NewBadRequestError("No fields to update.")
	}
	if err := s.agents.Update(id, fields); err != nil {
		return mapAgentError(err)
	}
	return nil
}

func (s *agentService) Delete(id string) error {
	if err := s.agents.Delete(id); err != nil {
		return mapAgentError(err)
	}
	return nil
}

func mapAgentError(err error) error {
	if err == repositories.ErrAgentNotFound {
		return apperrors.NewNotFoundError("Agent not found")
	}
	return apperrors.NewDatabaseError(err)
}

// clampPaging floors page and limit at 1 so malformed query values can never
// produce a negative OFFSET or a zero LIMIT.
func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return page, limit
}

func totalPages(total int64, limit int) int64 {
	if limit <= 0 {
		return 0
	}
	return (total + int64(limit) - 1) / int64(limit)
}

// stripIdentityFields drops client-supplied identifiers so they can never
// overwrite the primary key column.
func stripIdentityFields(fields map[string]interface{}) {
	delete(fields, "_id")
	delete(fields, "id")
}
