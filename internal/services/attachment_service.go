package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"scipedia/internal/logger"
	"scipedia/internal/models"
	"scipedia/internal/repositories"
	"scipedia/internal/storage"
	"scipedia/pkg/apperrors"
)

// AttachmentService orchestrates the two-phase attachment workflow across
// object storage and the record store. The two systems share no transaction:
// upload stores the object before linking it, delete removes the object
// before unlinking it, and each order leaves one documented inconsistency
// window (orphaned object / dangling reference) on partial failure.
type AttachmentService interface {
	UploadToAgent(ctx context.Context, agentID string, file *multipart.FileHeader, fileType string) (string, error)
	UploadToUser(ctx context.Context, email string, file *multipart.FileHeader, fileType string) (string, error)
	DeleteFromAgent(ctx context.Context, agentID, fileURL, fileID string) error
	DeleteFromUser(ctx context.Context, userID, fileURL, fileID string) error
}

type attachmentService struct {
	agents    repositories.AgentRepository
	users     repositories.UserRepository
	storage   storage.ObjectStorage
	maxSize   int64
	opTimeout time.Duration
}

func NewAttachmentService(
	agents repositories.AgentRepository,
	users repositories.UserRepository,
	store storage.ObjectStorage,
	maxSize int64,
	opTimeout time.Duration,
) AttachmentService {
	if opTimeout <= 0 {
		opTimeout = 30 * time.Second
	}
	return &attachmentService{
		agents:    agents,
		users:     users,
		storage:   store,
		maxSize:   maxSize,
		opTimeout: opTimeout,
	}
}

func (s *attachmentService) UploadToAgent(ctx context.Context, agentID string, file *multipart.FileHeader, fileType string) (string, error) {
	kind, err := s.validateUpload(file, fileType)
	if err != nil {
		return "", err
	}

	// Existence check before the upload closes most of the orphaned-object
	// window (object stored, no record to link it to).
	if _, err := s.agents.FindByID(agentID); err != nil {
		return "", mapAgentError(err)
	}

	att, err := s.putObject(ctx, file)
	if err != nil {
		return "", err
	}

	if err := s.agents.PushAttachment(agentID, kind, att); err != nil {
		s.logOrphan(ctx, att)
		return "", mapAgentError(err)
	}
	return att.URL, nil
}

func (s *attachmentService) UploadToUser(ctx context.Context, email string, file *multipart.FileHeader, fileType string) (string, error) {
	kind, err := s.validateUpload(file, fileType)
	if err != nil {
		return "", err
	}

	if _, err := s.users.FindByEmail(email); err != nil {
		return "", mapUserError(err)
	}

	att, err := s.putObject(ctx, file)
	if err != nil {
		return "", err
	}

	// User uploads are keyed by email, matching the route.
	if err := s.users.PushAttachmentByEmail(email, kind, att); err != nil {
		s.logOrphan(ctx, att)
		return "", mapUserError(err)
	}
	return att.URL, nil
}

func (s *attachmentService) DeleteFromAgent(ctx context.Context, agentID, fileURL, fileID string) error {
	return s.deleteAttachment(ctx, fileURL, fileID, func(url string) error {
		return s.agents.PullAttachmentByURL(agentID, url)
	})
}

func (s *attachmentService) DeleteFromUser(ctx context.Context, userID, fileURL, fileID string) error {
	return s.deleteAttachment(ctx, fileURL, fileID, func(url string) error {
		return s.users.PullAttachmentByURL(userID, url)
	})
}

// validateUpload enforces the pre-flight rules: a non-empty file and a valid
// fileType, checked before any external call is made.
func (s *attachmentService) validateUpload(file *multipart.FileHeader, fileType string) (models.FileKind, error) {
	if file == nil || file.Size == 0 || fileType == "" {
		return "", apperrors.NewBadRequestError("File and file type are required.")
	}
	kind, ok := models.ParseFileKind(fileType)
	if !ok {
		return "", apperrors.NewBadRequestError(
			fmt.Sprintf("Invalid file type %q: must be one of image, video, audio, pdf.", fileType))
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return "", apperrors.NewBadRequestError("File exceeds the maximum allowed size.")
	}
	return kind, nil
}

// putObject uploads the file under a generated object name and returns the
// attachment value to link. The name is a high-resolution timestamp plus the
// original extension; unique enough for this workload, but not collision-proof
// for concurrent uploads within the same instant.
func (s *attachmentService) putObject(ctx context.Context, file *multipart.FileHeader) (models.Attachment, error) {
	src, err := file.Open()
	if err != nil {
		return models.Attachment{}, apperrors.NewUploadError(err)
	}
	defer src.Close()

	name := strconv.FormatInt(time.Now().UnixNano(), 10) + filepath.Ext(file.Filename)
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// A client disconnect must not abort an in-flight upload; the put runs
	// on a detached context bounded only by the storage timeout.
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
	defer cancel()

	result, err := s.storage.PutObject(opCtx, name, src, file.Size, contentType)
	if err != nil {
		return models.Attachment{}, apperrors.NewUploadError(err)
	}

	return models.Attachment{
		Name:   file.Filename,
		URL:    result.URL,
		FileID: result.FileID,
	}, nil
}

// deleteAttachment runs the fixed-order unlink workflow: storage deletion
// always precedes the database pull, so a record never points at a deleted
// object for longer than necessary.
func (s *attachmentService) deleteAttachment(ctx context.Context, fileURL, fileID string, pull func(url string) error) error {
	if fileURL == "" {
		return apperrors.NewBadRequestError("File URL and file ID are required.")
	}
	if s.storage.RequiresFileID() && fileID == "" {
		return apperrors.NewBadRequestError("File URL and file ID are required.")
	}

	name := objectNameFromURL(fileURL)
	if name == "" {
		return apperrors.NewBadRequestError("Invalid file URL.")
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opTimeout)
	defer cancel()

	if err := s.storage.DeleteObject(opCtx, name, fileID); err != nil {
		if err == storage.ErrMissingFileID {
			return apperrors.NewBadRequestError("File URL and file ID are required.")
		}
		return apperrors.NewStorageDeleteError(err)
	}

	if err := pull(fileURL); err != nil {
		if err == repositories.ErrAttachmentNotFound {
			// The object is already gone from storage at this point; this
			// is the inverse inconsistency window to the upload case.
			return apperrors.NewNotFoundError("File link not found in any type array.")
		}
		logger.CtxWithError(ctx, "dangling attachment reference: object deleted but unlink failed", err,
			"fileUrl", fileURL)
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

func (s *attachmentService) logOrphan(ctx context.Context, att models.Attachment) {
	logger.CtxWarn(ctx, "orphaned object: stored but never linked to a record",
		"url", att.URL, "fileId", att.FileID)
}

// objectNameFromURL derives the storage object name from the URL's final
// path segment.
func objectNameFromURL(fileURL string) string {
	trimmed := strings.TrimSuffix(fileURL, "/")
	name := path.Base(trimmed)
	if name == "." || name == "/" || name == "" {
		return ""
	}
	if dec, err := url.PathUnescape(name); err == nil {
		name = dec
	}
	return name
}
