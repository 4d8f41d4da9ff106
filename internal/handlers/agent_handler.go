package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scipedia/internal/dto"
	"scipedia/internal/services"
	"scipedia/pkg/apperrors"
)

type AgentHandler struct {
	*BaseHandler
	agentService      services.AgentService
	attachmentService services.AttachmentService
}

func NewAgentHandler(base *BaseHandler, agentService services.AgentService, attachmentService services.AttachmentService) *AgentHandler {
	return &AgentHandler{
		BaseHandler:       base,
		agentService:      agentService,
		attachmentService: attachmentService,
	}
}

func (h *AgentHandler) RegisterRoutes(r *gin.Engine) {
	agents := r.Group("/agents")
	{
		agents.GET("", h.List)
		agents.POST("", h.Create)
		agents.GET("/:id", h.Get)
		agents.PUT("/:id", h.Update)
		agents.DELETE("/:id", h.Delete)
		agents.POST("/:id/uploadfile", h.UploadFile)
		agents.DELETE("/:id/deletefile", h.DeleteFile)
	}
}

func (h *AgentHandler) List(c *gin.Context) {
	var query dto.ListAgentsQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}

	result, err := h.agentService.List(query.AgentName, query.Page, query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AgentHandler) Get(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	doc, err := h.agentService.Get(id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *AgentHandler) Create(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	id, err := h.agentService.Create(fields)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"insertedId": id})
}

func (h *AgentHandler) Update(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	if err := h.agentService.Update(id, fields); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent updated successfully"})
}

func (h *AgentHandler) Delete(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	if err := h.agentService.Delete(id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Agent deleted successfully"})
}

func (h *AgentHandler) UploadFile(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("File and file type are required."))
		return
	}
	fileType := c.PostForm("fileType")

	fileURL, err := h.attachmentService.UploadToAgent(c.Request.Context(), id, file, fileType)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"fileUrl": fileURL,
	})
}

func (h *AgentHandler) DeleteFile(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	var req dto.DeleteFileRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.attachmentService.DeleteFromAgent(c.Request.Context(), id, req.FileURL, req.FileID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully."})
}
