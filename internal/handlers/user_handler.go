package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"scipedia/internal/dto"
	"scipedia/internal/services"
	"scipedia/pkg/apperrors"
)

type UserHandler struct {
	*BaseHandler
	userService       services.UserService
	attachmentService services.AttachmentService
}

func NewUserHandler(base *BaseHandler, userService services.UserService, attachmentService services.AttachmentService) *UserHandler {
	return &UserHandler{
		BaseHandler:       base,
		userService:       userService,
		attachmentService: attachmentService,
	}
}

// Lookup and upload are keyed by email, mutation by generated id. The param
// names differ per route but gin keeps one tree per method, so they never
// collide.
func (h *UserHandler) RegisterRoutes(r *gin.Engine) {
	users := r.Group("/users")
	{
		users.GET("", h.List)
		users.POST("", h.Create)
		users.GET("/:email", h.GetByEmail)
		users.PUT("/:id", h.Update)
		users.DELETE("/:id", h.Delete)
		users.POST("/:email/uploadfile", h.UploadFile)
		users.DELETE("/:id/deletefile", h.DeleteFile)
	}
}

func (h *UserHandler) List(c *gin.Context) {
	var query dto.ListUsersQuery
	if !h.BindAndValidateQuery(c, &query) {
		return
	}

	result, err := h.userService.List(query.Email, query.Page, query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *UserHandler) GetByEmail(c *gin.Context) {
	email := c.Param("email")

	doc, err := h.userService.GetByEmail(email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *UserHandler) Create(c *gin.Context) {
	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	id, err := h.userService.Create(fields)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"insertedId": id})
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	var fields map[string]interface{}
	if err := c.ShouldBindJSON(&fields); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return
	}

	if err := h.userService.Update(id, fields); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	if err := h.userService.Delete(id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *UserHandler) UploadFile(c *gin.Context) {
	email := c.Param("email")

	file, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("File and file type are required."))
		return
	}
	fileType := c.PostForm("fileType")

	fileURL, err := h.attachmentService.UploadToUser(c.Request.Context(), email, file, fileType)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"fileUrl": fileURL,
	})
}

func (h *UserHandler) DeleteFile(c *gin.Context) {
	id, ok := h.ParseParamID(c)
	if !ok {
		return
	}

	var req dto.DeleteFileRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.attachmentService.DeleteFromUser(c.Request.Context(), id, req.FileURL, req.FileID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "File deleted successfully."})
}
