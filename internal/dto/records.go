package dto

// ListAgentsQuery carries the pagination params plus the agent name
// substring filter.
type ListAgentsQuery struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	AgentName string `form:"agentName"`
}

type ListUsersQuery struct {
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
	Email string `form:"email"`
}

// DeleteFileRequest is the body of the deletefile routes.
type DeleteFileRequest struct {
	FileURL string `json:"fileUrl" validate:"required"`
	FileID  string `json:"fileId"`
}

// CheckEmailRequest is the POST body variant of the email existence check.
type CheckEmailRequest struct {
	Email string `json:"email" validate:"required"`
}
