package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	defaultAuthorizeURL = "https://api.backblazeb2.com/b2api/v2/b2_authorize_account"

	// B2 auth tokens are valid for 24h; refresh slightly early.
	sessionTTL = 23 * time.Hour
)

// Session is a short-lived Backblaze credential plus the account's API and
// download endpoints. It is shared by all concurrent requests and refreshed
// under a single-flight guard when it expires.
type Session struct {
	Token       string
	APIURL      string
	DownloadURL string
	ExpiresAt   time.Time
}

// Valid reports whether the session can still be used.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && time.Now().Before(s.ExpiresAt)
}

// BackblazeStorage talks to the native Backblaze B2 API: authorize_account,
// get_upload_url, upload_file, delete_file_version, list_file_names.
type BackblazeStorage struct {
	keyID        string
	appKey       string
	bucketID     string
	bucket       string
	baseURL      string // public URL base; empty means use the account download URL
	authorizeURL string
	client       *http.Client

	mu      sync.Mutex
	session *Session
	group   singleflight.Group
}

// NewBackblazeStorage creates a Backblaze backend. No network call is made
// here; authorization happens lazily on first use.
func NewBackblazeStorage(cfg Config) (*BackblazeStorage, error) {
	if cfg.KeyID == "" || cfg.ApplicationKey == "" {
		return nil, fmt.Errorf("backblaze: key_id and application_key are required")
	}
	if cfg.BucketID == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("backblaze: bucket and bucket_id are required")
	}

	return &BackblazeStorage{
		keyID:        cfg.KeyID,
		appKey:       cfg.ApplicationKey,
		bucketID:     cfg.BucketID,
		bucket:       cfg.Bucket,
		baseURL:      cfg.BaseURL,
		authorizeURL: defaultAuthorizeURL,
		client:       &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// b2Error is a Backblaze API error body: {status, code, message}.
type b2Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *b2Error) Error() string {
	return fmt.Sprintf("backblaze: %s (%d %s)", e.Message, e.Status, e.Code)
}

func decodeB2Error(resp *http.Response) error {
	var apiErr b2Error
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Status == 0 {
		return &b2Error{Status: resp.StatusCode, Code: "unknown", Message: resp.Status}
	}
	return &apiErr
}

// Authorize returns a valid session, fetching a new one if the cached session
// is missing or expired. Concurrent callers share a single in-flight
// authorization request.
func (b *BackblazeStorage) Authorize(ctx context.Context) (*Session, error) {
	b.mu.Lock()
	if b.session.Valid() {
		s := b.session
		b.mu.Unlock()
		return s, nil
	}
	b.mu.Unlock()

	v, err, _ := b.group.Do("authorize", func() (interface{}, error) {
		// Re-check: another caller may have refreshed while we waited.
		b.mu.Lock()
		if b.session.Valid() {
			s := b.session
			b.mu.Unlock()
			return s, nil
		}
		b.mu.Unlock()

		s, err := b.fetchSession(ctx)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.session = s
		b.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (b *BackblazeStorage) fetchSession(ctx context.Context) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.authorizeURL, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(b.keyID, b.appKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backblaze: authorize failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeB2Error(resp)
	}

	var body struct {
		AuthorizationToken string `json:"authorizationToken"`
		APIURL             string `json:"apiUrl"`
		DownloadURL        string `json:"downloadUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("backblaze: invalid authorize response: %w", err)
	}

	return &Session{
		Token:       body.AuthorizationToken,
		APIURL:      body.APIURL,
		DownloadURL: body.DownloadURL,
		ExpiresAt:   time.Now().Add(sessionTTL),
	}, nil
}

// invalidate drops the cached session, but only if it is still the one the
// caller saw. A newer session installed by another request is left alone.
func (b *BackblazeStorage) invalidate(s *Session) {
	b.mu.Lock()
	if b.session == s {
		b.session = nil
	}
	b.mu.Unlock()
}

// apiCall posts a JSON body to a b2api endpoint using the cached session,
// transparently re-authorizing once if the token has expired server-side.
func (b *BackblazeStorage) apiCall(ctx context.Context, endpoint string, reqBody, respBody interface{}) error {
	for attempt := 0; ; attempt++ {
		sess, err := b.Authorize(ctx)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			sess.APIURL+"/b2api/v2/"+endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", sess.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.client.Do(req)
		if err != nil {
			return fmt.Errorf("backblaze: %s failed: %w", endpoint, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			resp.Body.Close()
			b.invalidate(sess)
			continue
		}

		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return decodeB2Error(resp)
		}
		if respBody == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(respBody)
	}
}

// UploadTarget requests a one-time upload endpoint and token scoped to the
// configured bucket.
func (b *BackblazeStorage) UploadTarget(ctx context.Context) (uploadURL, uploadToken string, err error) {
	var body struct {
		UploadURL          string `json:"uploadUrl"`
		AuthorizationToken string `json:"authorizationToken"`
	}
	req := map[string]string{"bucketId": b.bucketID}
	if err := b.apiCall(ctx, "b2_get_upload_url", req, &body); err != nil {
		return "", "", err
	}
	return body.UploadURL, body.AuthorizationToken, nil
}

// PutObject uploads the object to a one-time upload endpoint and returns the
// public URL and the storage-assigned file id.
func (b *BackblazeStorage) PutObject(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*PutResult, error) {
	uploadURL, uploadToken, err := b.UploadTarget(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Authorization", uploadToken)
	req.Header.Set("X-Bz-File-Name", url.PathEscape(name))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Bz-Content-Sha1", "do_not_verify")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backblaze: upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeB2Error(resp)
	}

	var uploaded struct {
		FileID   string `json:"fileId"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return nil, fmt.Errorf("backblaze: invalid upload response: %w", err)
	}

	return &PutResult{
		URL:    b.publicURL(ctx, name),
		FileID: uploaded.FileID,
	}, nil
}

// DeleteObject deletes a file version keyed by both name and id. An object
// that is already gone counts as deleted.
func (b *BackblazeStorage) DeleteObject(ctx context.Context, name, fileID string) error {
	if name == "" || fileID == "" {
		return ErrMissingFileID
	}

	req := map[string]string{"fileName": name, "fileId": fileID}
	err := b.apiCall(ctx, "b2_delete_file_version", req, nil)
	if err == nil {
		return nil
	}

	var apiErr *b2Error
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Code == "file_not_present") {
		return nil
	}
	return err
}

// ListObjects walks the bucket with b2_list_file_names.
func (b *BackblazeStorage) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	startName := ""

	for {
		var body struct {
			Files []struct {
				FileName        string `json:"fileName"`
				FileID          string `json:"fileId"`
				UploadTimestamp int64  `json:"uploadTimestamp"`
			} `json:"files"`
			NextFileName *string `json:"nextFileName"`
		}
		req := map[string]interface{}{
			"bucketId":      b.bucketID,
			"maxFileCount":  1000,
			"startFileName": startName,
		}
		if err := b.apiCall(ctx, "b2_list_file_names", req, &body); err != nil {
			return nil, err
		}

		for _, f := range body.Files {
			objects = append(objects, ObjectInfo{
				Name:       f.FileName,
				URL:        b.publicURL(ctx, f.FileName),
				FileID:     f.FileID,
				UploadedAt: time.UnixMilli(f.UploadTimestamp),
			})
		}

		if body.NextFileName == nil || *body.NextFileName == "" {
			break
		}
		startName = *body.NextFileName
	}

	return objects, nil
}

// RequiresFileID is true: b2_delete_file_version needs both name and id.
func (b *BackblazeStorage) RequiresFileID() bool { return true }

// publicURL builds the deterministic download URL for an object.
func (b *BackblazeStorage) publicURL(ctx context.Context, name string) string {
	base := b.baseURL
	if base == "" {
		if sess, err := b.Authorize(ctx); err == nil {
			base = sess.DownloadURL
		}
	}
	return fmt.Sprintf("%s/file/%s/%s", base, b.bucket, name)
}
