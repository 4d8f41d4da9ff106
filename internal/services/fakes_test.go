package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"scipedia/internal/models"
	"scipedia/internal/repositories"
	"scipedia/internal/storage"
)

// fakeStorage records calls and can be told to fail.
type fakeStorage struct {
	putCalls    int
	deleteCalls int
	lastPutName string
	lastDelete  [2]string // name, fileID

	putErr    error
	deleteErr error

	needsFileID bool
	objects     []storage.ObjectInfo
}

func (f *fakeStorage) PutObject(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*storage.PutResult, error) {
	f.putCalls++
	f.lastPutName = name
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &storage.PutResult{
		URL:    "https://cdn.test/file/bucket/" + name,
		FileID: "fid-" + name,
	}, nil
}

func (f *fakeStorage) DeleteObject(ctx context.Context, name, fileID string) error {
	f.deleteCalls++
	f.lastDelete = [2]string{name, fileID}
	if f.needsFileID && fileID == "" {
		return storage.ErrMissingFileID
	}
	return f.deleteErr
}

func (f *fakeStorage) ListObjects(ctx context.Context) ([]storage.ObjectInfo, error) {
	return f.objects, nil
}

func (f *fakeStorage) RequiresFileID() bool { return f.needsFileID }

// fakeAgentRepo backs AgentRepository with a map.
type fakeAgentRepo struct {
	agents map[string]*models.Agent

	pushErr error
	pullErr error

	pushed []models.Attachment
	pulled []string
}

func newFakeAgentRepo() *fakeAgentRepo {
	return &fakeAgentRepo{agents: map[string]*models.Agent{}}
}

func (f *fakeAgentRepo) List(nameFilter string, page, limit int) ([]models.Agent, int64, error) {
	var out []models.Agent
	for _, a := range f.agents {
		out = append(out, *a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAgentRepo) FindByID(id string) (*models.Agent, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, repositories.ErrAgentNotFound
	}
	return a, nil
}

func (f *fakeAgentRepo) Insert(fields map[string]interface{}) (string, error) {
	id := fmt.Sprintf("agent-%d", len(f.agents)+1)
	f.agents[id] = &models.Agent{}
	return id, nil
}

func (f *fakeAgentRepo) Update(id string, fields map[string]interface{}) error {
	if _, ok := f.agents[id]; !ok {
		return repositories.ErrAgentNotFound
	}
	return nil
}

func (f *fakeAgentRepo) Delete(id string) error {
	if _, ok := f.agents[id]; !ok {
		return repositories.ErrAgentNotFound
	}
	delete(f.agents, id)
	return nil
}

func (f *fakeAgentRepo) PushAttachment(id string, kind models.FileKind, att models.Attachment) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	if _, ok := f.agents[id]; !ok {
		return repositories.ErrAgentNotFound
	}
	f.pushed = append(f.pushed, att)
	return nil
}

func (f *fakeAgentRepo) PullAttachmentByURL(id, url string) error {
	if f.pullErr != nil {
		return f.pullErr
	}
	f.pulled = append(f.pulled, url)
	return nil
}

func (f *fakeAgentRepo) IsAttachmentURLReferenced(url string) (bool, error) {
	return false, nil
}

// fakeUserRepo backs UserRepository with maps keyed by id and email.
type fakeUserRepo struct {
	byID    map[string]*models.User
	byEmail map[string]*models.User

	pushErr error
	pullErr error

	pushed []models.Attachment
	pulled []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    map[string]*models.User{},
		byEmail: map[string]*models.User{},
	}
}

func (f *fakeUserRepo) add(id, email string, u *models.User) {
	f.byID[id] = u
	f.byEmail[email] = u
}

func (f *fakeUserRepo) List(emailFilter string, page, limit int) ([]models.User, int64, error) {
	var out []models.User
	for _, u := range f.byID {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) FindByID(id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) FindByEmail(email string) (*models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Insert(fields map[string]interface{}) (string, error) {
	email, _ := fields["email"].(string)
	if _, ok := f.byEmail[email]; ok {
		return "", repositories.ErrUserAlreadyExists
	}
	id := fmt.Sprintf("user-%d", len(f.byID)+1)
	f.add(id, email, &models.User{Email: email})
	return id, nil
}

func (f *fakeUserRepo) Update(id string, fields map[string]interface{}) error {
	if _, ok := f.byID[id]; !ok {
		return repositories.ErrUserNotFound
	}
	return nil
}

func (f *fakeUserRepo) Delete(id string) error {
	if _, ok := f.byID[id]; !ok {
		return repositories.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUserRepo) PushAttachmentByEmail(email string, kind models.FileKind, att models.Attachment) error {
	if f.pushErr != nil {
		return f.pushErr
	}
	if _, ok := f.byEmail[email]; !ok {
		return repositories.ErrUserNotFound
	}
	f.pushed = append(f.pushed, att)
	return nil
}

func (f *fakeUserRepo) PullAttachmentByURL(id, url string) error {
	if f.pullErr != nil {
		return f.pullErr
	}
	f.pulled = append(f.pulled, url)
	return nil
}

func (f *fakeUserRepo) EmailExists(email string) (bool, error) {
	_, ok := f.byEmail[email]
	return ok, nil
}

func (f *fakeUserRepo) RoleByEmail(email string) (string, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return "", repositories.ErrUserNotFound
	}
	role, _ := u.Fields["role"].(string)
	return role, nil
}

func (f *fakeUserRepo) IsAttachmentURLReferenced(url string) (bool, error) {
	return false, nil
}

// fileHeader builds a real multipart.FileHeader the way gin would hand it to
// a handler.
func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })

	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func newAttachmentServiceForTest(agents repositories.AgentRepository, users repositories.UserRepository, store storage.ObjectStorage) AttachmentService {
	return NewAttachmentService(agents, users, store, 10<<20, 5*time.Second)
}
