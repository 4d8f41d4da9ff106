package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeB2 is an in-process stand-in for the Backblaze native API.
type fakeB2 struct {
	server *httptest.Server

	authorizeCalls int32
	uploadCalls    int32
	deleteCalls    int32

	mu             sync.Mutex
	lastUploadHdrs http.Header
	lastUploadBody []byte
	deleteResponse func(w http.ResponseWriter) // nil means 200
	listPages      [][]map[string]interface{}
	nextListPage   int
	rejectToken    bool // respond 401 to api calls once, then accept
}

func newFakeB2(t *testing.T) *fakeB2 {
	t.Helper()
	f := &fakeB2{}

	mux := http.NewServeMux()
	mux.HandleFunc("/b2api/v2/b2_authorize_account", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.authorizeCalls, 1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key-id" || pass != "app-key" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": 401, "code": "bad_auth_token", "message": "bad credentials",
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"authorizationToken": "session-token",
			"apiUrl":             f.server.URL,
			"downloadUrl":        f.server.URL + "/dl",
		})
	})
	mux.HandleFunc("/b2api/v2/b2_get_upload_url", func(w http.ResponseWriter, r *http.Request) {
		if f.maybeReject(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl":          f.server.URL + "/upload-endpoint",
			"authorizationToken": "upload-token",
		})
	})
	mux.HandleFunc("/upload-endpoint", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.uploadCalls, 1)
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body)
		f.mu.Lock()
		f.lastUploadHdrs = r.Header.Clone()
		f.lastUploadBody = body.Bytes()
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{
			"fileId":   "4_z0000_file_id",
			"fileName": r.Header.Get("X-Bz-File-Name"),
		})
	})
	mux.HandleFunc("/b2api/v2/b2_delete_file_version", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.deleteCalls, 1)
		if f.maybeReject(w, r) {
			return
		}
		f.mu.Lock()
		respond := f.deleteResponse
		f.mu.Unlock()
		if respond != nil {
			respond(w)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{})
	})
	mux.HandleFunc("/b2api/v2/b2_list_file_names", func(w http.ResponseWriter, r *http.Request) {
		if f.maybeReject(w, r) {
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		var files []map[string]interface{}
		var next *string
		if f.nextListPage < len(f.listPages) {
			files = f.listPages[f.nextListPage]
			f.nextListPage++
			if f.nextListPage < len(f.listPages) {
				name := files[len(files)-1]["fileName"].(string)
				next = &name
			}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"files":        files,
			"nextFileName": next,
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// maybeReject simulates a server-side token expiry: one 401, then normal
// service.
func (f *fakeB2) maybeReject(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	reject := f.rejectToken
	f.rejectToken = false
	f.mu.Unlock()
	if !reject {
		return false
	}
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": 401, "code": "expired_auth_token", "message": "token expired",
	})
	return true
}

func newTestBackblaze(t *testing.T, f *fakeB2) *BackblazeStorage {
	t.Helper()
	b, err := NewBackblazeStorage(Config{
		KeyID:          "key-id",
		ApplicationKey: "app-key",
		BucketID:       "bucket-id",
		Bucket:         "my-bucket",
		Timeout:        5 * time.Second,
	})
	require.NoError(t, err)
	b.authorizeURL = f.server.URL + "/b2api/v2/b2_authorize_account"
	return b
}

func TestBackblazePutObject(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	res, err := b.PutObject(context.Background(), "1700000000 report.pdf",
		strings.NewReader("file-bytes"), 10, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "4_z0000_file_id", res.FileID)
	assert.Equal(t, f.server.URL+"/dl/file/my-bucket/1700000000 report.pdf", res.URL)

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "upload-token", f.lastUploadHdrs.Get("Authorization"))
	assert.Equal(t, "1700000000%20report.pdf", f.lastUploadHdrs.Get("X-Bz-File-Name"))
	assert.Equal(t, "application/pdf", f.lastUploadHdrs.Get("Content-Type"))
	assert.Equal(t, "do_not_verify", f.lastUploadHdrs.Get("X-Bz-Content-Sha1"))
	assert.Equal(t, []byte("file-bytes"), f.lastUploadBody)
}

func TestBackblazeDeleteObject(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	err := b.DeleteObject(context.Background(), "report.pdf", "4_z0000_file_id")
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.deleteCalls))
}

func TestBackblazeDeleteObject_AlreadyGone(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	f.deleteResponse = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": 400, "code": "file_not_present", "message": "file not present",
		})
	}

	// A file that is already gone counts as deleted.
	err := b.DeleteObject(context.Background(), "report.pdf", "4_z0000_file_id")
	assert.NoError(t, err)
}

func TestBackblazeDeleteObject_MissingFileID(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	err := b.DeleteObject(context.Background(), "report.pdf", "")
	assert.ErrorIs(t, err, ErrMissingFileID)
	// Validation failures must not reach the network.
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.deleteCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.authorizeCalls))
}

func TestBackblazeAuthorize_SharedAcrossCallers(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := b.Authorize(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "session-token", s.Token)
		}()
	}
	wg.Wait()

	// All concurrent callers share one in-flight authorization.
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.authorizeCalls))
}

func TestBackblazeAPICall_ReauthorizesOnExpiredToken(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	// Warm the session, then have the server reject it once.
	_, err := b.Authorize(context.Background())
	require.NoError(t, err)
	f.mu.Lock()
	f.rejectToken = true
	f.mu.Unlock()

	err = b.DeleteObject(context.Background(), "report.pdf", "4_z0000_file_id")
	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.authorizeCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.deleteCalls))
}

func TestBackblazeListObjects_Pagination(t *testing.T) {
	t.Parallel()

	f := newFakeB2(t)
	b := newTestBackblaze(t, f)

	f.listPages = [][]map[string]interface{}{
		{
			{"fileName": "a.png", "fileId": "id-a", "uploadTimestamp": int64(1700000000000)},
			{"fileName": "b.png", "fileId": "id-b", "uploadTimestamp": int64(1700000001000)},
		},
		{
			{"fileName": "c.png", "fileId": "id-c", "uploadTimestamp": int64(1700000002000)},
		},
	}

	objects, err := b.ListObjects(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 3)

	assert.Equal(t, "a.png", objects[0].Name)
	assert.Equal(t, "id-c", objects[2].FileID)
	assert.Equal(t, f.server.URL+"/dl/file/my-bucket/c.png", objects[2].URL)
	assert.Equal(t, time.UnixMilli(1700000002000), objects[2].UploadedAt)
}
