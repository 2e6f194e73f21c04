package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

// In-memory двойники репозиториев. Контракт тот же, что у sqlx-реализаций:
// Get* возвращает KindNotFound, Find* возвращает (nil, nil).

type fakeUserRepo struct {
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) add(u domain.User) {
	r.users[u.ID] = &u
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "user not found")
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.New(apperror.KindNotFound, "user not found")
}

func (r *fakeUserRepo) AddUsedBytes(_ context.Context, id string, delta int64) error {
	u, ok := r.users[id]
	if !ok {
		return apperror.New(apperror.KindNotFound, "user not found")
	}
	u.StorageUsed += delta
	if u.StorageUsed < 0 {
		u.StorageUsed = 0
	}
	return nil
}

type fakeFolderRepo struct {
	folders map[int64]*domain.Folder
	nextID  int64
}

func newFakeFolderRepo() *fakeFolderRepo {
	return &fakeFolderRepo{folders: make(map[int64]*domain.Folder), nextID: 1}
}

func (r *fakeFolderRepo) Create(_ context.Context, folder *domain.Folder) error {
	folder.ID = r.nextID
	r.nextID++
	copied := *folder
	r.folders[folder.ID] = &copied
	return nil
}

func (r *fakeFolderRepo) GetByID(_ context.Context, id int64) (*domain.Folder, error) {
	f, ok := r.folders[id]
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "folder not found")
	}
	copied := *f
	return &copied, nil
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// nameMatches повторяет семантику экранированного ILIKE: подстрока без
// учета регистра, метасимволы трактуются буквально
func nameMatches(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

func pageSlice[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func (r *fakeFolderRepo) FindByName(_ context.Context, ownerID string, parentID *int64, name string) (*domain.Folder, error) {
	for _, f := range r.folders {
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.ParentID, parentID) {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFolderRepo) ListByParent(_ context.Context, ownerID string, parentID *int64) ([]domain.Folder, error) {
	var out []domain.Folder
	for _, f := range r.folders {
		if f.OwnerID == ownerID && sameParent(f.ParentID, parentID) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SearchVisible в двойниках сортирует по имени: in-memory записи не несут
// меток времени, по которым сортирует SQL-реализация
func (r *fakeFolderRepo) SearchVisible(_ context.Context, userID, query string, limit, offset int) ([]domain.Folder, int64, error) {
	var matched []domain.Folder
	for _, f := range r.folders {
		if !nameMatches(f.Name, query) {
			continue
		}
		if f.OwnerID != userID && f.AccessLevel != domain.AccessPublic {
			continue
		}
		matched = append(matched, *f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := int64(len(matched))
	return pageSlice(matched, limit, offset), total, nil
}

func (r *fakeFolderRepo) UpdateName(_ context.Context, id int64, name string) error {
	f, ok := r.folders[id]
	if !ok {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}
	f.Name = name
	return nil
}

func (r *fakeFolderRepo) UpdateAccessLevel(_ context.Context, id int64, level domain.AccessLevel) error {
	f, ok := r.folders[id]
	if !ok {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}
	f.AccessLevel = level
	return nil
}

func (r *fakeFolderRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.folders[id]; !ok {
		return apperror.New(apperror.KindNotFound, "folder not found")
	}
	delete(r.folders, id)
	return nil
}

type fakeFileRepo struct {
	files  map[uuid.UUID]*domain.File
	shares *fakeShareRepo

	failAccessUpdate bool
}

func newFakeFileRepo(shares *fakeShareRepo) *fakeFileRepo {
	return &fakeFileRepo{files: make(map[uuid.UUID]*domain.File), shares: shares}
}

func (r *fakeFileRepo) Create(_ context.Context, file *domain.File) error {
	copied := *file
	r.files[file.UUID] = &copied
	return nil
}

func (r *fakeFileRepo) GetByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	f, ok := r.files[fileUUID]
	if !ok {
		return nil, apperror.New(apperror.KindNotFound, "file not found")
	}
	copied := *f
	return &copied, nil
}

func (r *fakeFileRepo) GetByPublicToken(_ context.Context, token string) (*domain.File, error) {
	for _, f := range r.files {
		if f.PublicToken != nil && *f.PublicToken == token {
			copied := *f
			return &copied, nil
		}
	}
	return nil, apperror.New(apperror.KindNotFound, "file not found")
}

func (r *fakeFileRepo) FindByName(_ context.Context, ownerID string, folderID *int64, name string) (*domain.File, error) {
	for _, f := range r.files {
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.FolderID, folderID) {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) ListByFolder(_ context.Context, ownerID string, folderID *int64) ([]domain.File, error) {
	var out []domain.File
	for _, f := range r.files {
		if f.OwnerID == ownerID && sameParent(f.FolderID, folderID) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeFileRepo) List(_ context.Context, ownerID string, opts domain.FileListOptions) ([]domain.File, int64, error) {
	var matched []domain.File
	for _, f := range r.files {
		if f.OwnerID != ownerID {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(opts.Search)) {
			continue
		}
		if opts.MIMETypePrefix != "" && !strings.HasPrefix(strings.ToLower(f.MIMEType), strings.ToLower(opts.MIMETypePrefix)) {
			continue
		}
		matched = append(matched, *f)
	}

	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch opts.SortBy {
		case "name":
			less = matched[i].Name < matched[j].Name
		case "size":
			less = matched[i].SizeBytes < matched[j].SizeBytes
		case "updated_at":
			less = matched[i].UpdatedAt.Before(matched[j].UpdatedAt)
		default:
			less = matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		if opts.SortOrder == "desc" {
			return !less
		}
		return less
	})

	total := int64(len(matched))

	start := (opts.Page - 1) * opts.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *fakeFileRepo) SearchVisible(ctx context.Context, userID, query string, limit, offset int) ([]domain.File, int64, error) {
	var matched []domain.File
	for _, f := range r.files {
		if !nameMatches(f.Name, query) {
			continue
		}
		visible := f.OwnerID == userID || f.AccessLevel == domain.AccessPublic
		if !visible && f.AccessLevel == domain.AccessShared && r.shares != nil {
			share, err := r.shares.Find(ctx, f.UUID.String(), domain.ResourceTypeFile, userID)
			if err != nil {
				return nil, 0, err
			}
			visible = share != nil
		}
		if !visible {
			continue
		}
		matched = append(matched, *f)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	total := int64(len(matched))
	return pageSlice(matched, limit, offset), total, nil
}

func (r *fakeFileRepo) UpdateName(_ context.Context, fileUUID uuid.UUID, name string) error {
	f, ok := r.files[fileUUID]
	if !ok {
		return apperror.New(apperror.KindNotFound, "file not found")
	}
	f.Name = name
	return nil
}

func (r *fakeFileRepo) UpdateAccessLevel(_ context.Context, fileUUID uuid.UUID, level domain.AccessLevel) error {
	if r.failAccessUpdate {
		return fmt.Errorf("simulated database failure")
	}
	f, ok := r.files[fileUUID]
	if !ok {
		return apperror.New(apperror.KindNotFound, "file not found")
	}
	f.AccessLevel = level
	return nil
}

func (r *fakeFileRepo) SetPublicToken(_ context.Context, fileUUID uuid.UUID, token string) error {
	f, ok := r.files[fileUUID]
	if !ok {
		return apperror.New(apperror.KindNotFound, "file not found")
	}
	f.PublicToken = &token
	return nil
}

func (r *fakeFileRepo) Delete(_ context.Context, fileUUID uuid.UUID) error {
	f, ok := r.files[fileUUID]
	if !ok {
		return apperror.New(apperror.KindNotFound, "file not found")
	}
	if r.shares != nil {
		_ = r.shares.DeleteByResource(context.Background(), f.UUID.String(), domain.ResourceTypeFile)
	}
	delete(r.files, fileUUID)
	return nil
}

type fakeShareRepo struct {
	shares map[uuid.UUID]*domain.Share
}

func newFakeShareRepo() *fakeShareRepo {
	return &fakeShareRepo{shares: make(map[uuid.UUID]*domain.Share)}
}

func (r *fakeShareRepo) Create(_ context.Context, share *domain.Share) error {
	copied := *share
	r.shares[share.ID] = &copied
	return nil
}

func (r *fakeShareRepo) UpdatePermission(_ context.Context, id uuid.UUID, permission domain.SharePermission) error {
	s, ok := r.shares[id]
	if !ok {
		return apperror.New(apperror.KindNotFound, "share not found")
	}
	s.Permission = permission
	return nil
}

func (r *fakeShareRepo) Find(_ context.Context, resourceID string, resourceType domain.ResourceType, granteeID string) (*domain.Share, error) {
	for _, s := range r.shares {
		if s.ResourceID == resourceID && s.ResourceType == resourceType && s.GranteeID == granteeID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeShareRepo) ListByResource(_ context.Context, resourceID string, resourceType domain.ResourceType) ([]domain.Share, error) {
	var out []domain.Share
	for _, s := range r.shares {
		if s.ResourceID == resourceID && s.ResourceType == resourceType {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeShareRepo) DeleteByResource(_ context.Context, resourceID string, resourceType domain.ResourceType) error {
	for id, s := range r.shares {
		if s.ResourceID == resourceID && s.ResourceType == resourceType {
			delete(r.shares, id)
		}
	}
	return nil
}

// fakeBlob хранит объекты в памяти; failDelete позволяет проверить, что
// неудачное удаление байтов не ломает удаление метаданных.
type fakeBlob struct {
	objects    map[string][]byte
	failDelete bool
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (b *fakeBlob) Upload(_ context.Context, key string, data io.Reader, _ int64) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.objects[key] = buf
	return nil
}

func (b *fakeBlob) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *fakeBlob) Delete(_ context.Context, key string) error {
	if b.failDelete {
		return fmt.Errorf("simulated storage failure")
	}
	delete(b.objects, key)
	return nil
}

// testEnv собирает полный граф сервисов поверх in-memory двойников
type testEnv struct {
	users   *fakeUserRepo
	folders *fakeFolderRepo
	files   *fakeFileRepo
	shares  *fakeShareRepo
	blob    *fakeBlob

	quota   *QuotaService
	access  *AccessService
	folder  *FolderService
	file    *FileService
	sharing *ShareService
	search  *SearchService
}

func newTestEnv() *testEnv {
	users := newFakeUserRepo()
	shares := newFakeShareRepo()
	folders := newFakeFolderRepo()
	files := newFakeFileRepo(shares)
	blobStore := newFakeBlob()

	quota := NewQuotaService(users)
	access := NewAccessService(shares)

	return &testEnv{
		users:   users,
		folders: folders,
		files:   files,
		shares:  shares,
		blob:    blobStore,
		quota:   quota,
		access:  access,
		folder:  NewFolderService(folders, files, blobStore, quota),
		file:    NewFileService(files, folders, blobStore, quota, access, nil),
		sharing: NewShareService(shares, files, folders, users, blobStore),
		search:  NewSearchService(files, folders),
	}
}

func (e *testEnv) addUser(id, email string, quota, used int64) {
	e.users.add(domain.User{ID: id, Email: email, StorageQuota: quota, StorageUsed: used})
}

func (e *testEnv) uploadFile(ctx context.Context, userID, name string, size int64, folderID *int64) (*domain.File, error) {
	data := bytes.Repeat([]byte("a"), int(size))
	return e.file.Upload(ctx, userID, domain.FileUpload{
		Name:     name,
		MIMEType: "text/plain",
		Size:     size,
		FolderID: folderID,
		Data:     bytes.NewReader(data),
	})
}
