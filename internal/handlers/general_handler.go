package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/gin-gonic/gin"

	"scipedia/internal/dto"
	"scipedia/internal/logger"
	"scipedia/internal/services"
	"scipedia/pkg/apperrors"
)

// GeneralHandler serves the small cross-cutting surface: liveness,
// email/role lookups and the download proxy.
type GeneralHandler struct {
	*BaseHandler
	userService services.UserService
	httpClient  *http.Client
}

func NewGeneralHandler(base *BaseHandler, userService services.UserService) *GeneralHandler {
	return &GeneralHandler{
		BaseHandler: base,
		userService: userService,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

func (h *GeneralHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Liveness)
	r.GET("/download", h.Download)

	api := r.Group("/api")
	{
		api.GET("/check-email", h.CheckEmailQuery)
		api.POST("/check-email", h.CheckEmailBody)
		api.GET("/get-role", h.GetRole)
		api.GET("/download", h.Download)
	}
}

func (h *GeneralHandler) Liveness(c *gin.Context) {
	c.String(http.StatusOK, "Server is running")
}

func (h *GeneralHandler) CheckEmailQuery(c *gin.Context) {
	h.checkEmail(c, c.Query("email"))
}

func (h *GeneralHandler) CheckEmailBody(c *gin.Context) {
	var req dto.CheckEmailRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}
	h.checkEmail(c, req.Email)
}

func (h *GeneralHandler) checkEmail(c *gin.Context, email string) {
	exists, err := h.userService.CheckEmail(email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *GeneralHandler) GetRole(c *gin.Context) {
	role, err := h.userService.GetRole(c.Query("email"))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role})
}

// Download proxies the remote file and streams it back with an attachment
// disposition, so browsers save it instead of rendering it inline.
func (h *GeneralHandler) Download(c *gin.Context) {
	fileURL := c.Query("fileUrl")
	if fileURL == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("File URL is required"))
		return
	}
	if _, err := url.ParseRequestURI(fileURL); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid file URL."))
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, fileURL, nil)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid file URL."))
		return
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to fetch file for download", err, "fileUrl", fileURL)
		apperrors.HandleError(c, apperrors.New(apperrors.CodeInternalError, "Failed to download file", http.StatusInternalServerError))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.CtxWarn(c.Request.Context(), "Upstream returned non-200 for download",
			"fileUrl", fileURL, "status", resp.StatusCode)
		apperrors.HandleError(c, apperrors.New(apperrors.CodeInternalError, "Failed to download file", http.StatusInternalServerError))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	filename := path.Base(fileURL)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		c.Header("Content-Length", cl)
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// Headers are already written; all we can do is log the broken stream.
		logger.CtxWithError(c.Request.Context(), "Download stream interrupted", err, "fileUrl", fileURL)
	}
}
