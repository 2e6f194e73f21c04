package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/apperror"
	"vaultdrive/internal/domain"
)

func TestCreateFolder(t *testing.T) {
	ctx := context.Background()

	t.Run("creates at root", func(t *testing.T) {
		env := newTestEnv()
		env.addUser("u1", "u1@example.com", 1000, 0)

		folder, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
		require.NoError(t, err)
		assert.Equal(t, "Documents", folder.Name)
		assert.Nil(t, folder.ParentID)
		assert.Equal(t, domain.AccessPrivate, folder.AccessLevel)
	})

	t.Run("trims name", func(t *testing.T) {
		env := newTestEnv()
		folder, err := env.folder.CreateFolder(ctx, "u1", "  Photos  ", nil)
		require.NoError(t, err)
		assert.Equal(t, "Photos", folder.Name)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.folder.CreateFolder(ctx, "u1", "   ", nil)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindInvalidArgument))
	})

	t.Run("duplicate name in same parent conflicts", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
		require.NoError(t, err)

		_, err = env.folder.CreateFolder(ctx, "u1", "Documents", nil)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("same name allowed in different parents", func(t *testing.T) {
		env := newTestEnv()
		parent, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
		require.NoError(t, err)

		_, err = env.folder.CreateFolder(ctx, "u1", "Photos", nil)
		require.NoError(t, err)
		_, err = env.folder.CreateFolder(ctx, "u1", "Photos", &parent.ID)
		require.NoError(t, err)
	})

	t.Run("missing parent", func(t *testing.T) {
		env := newTestEnv()
		missing := int64(404)
		_, err := env.folder.CreateFolder(ctx, "u1", "Documents", &missing)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("foreign parent forbidden", func(t *testing.T) {
		env := newTestEnv()
		parent, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
		require.NoError(t, err)

		_, err = env.folder.CreateFolder(ctx, "u2", "Stuff", &parent.ID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	})
}

func TestGetFolderOwnership(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
	require.NoError(t, err)

	_, err = env.folder.GetFolder(ctx, "u2", folder.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestGetContents(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1", "u1@example.com", 10000, 0)
	ctx := context.Background()

	docs, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
	require.NoError(t, err)
	_, err = env.folder.CreateFolder(ctx, "u1", "Archive", nil)
	require.NoError(t, err)

	_, err = env.uploadFile(ctx, "u1", "notes.txt", 10, nil)
	require.NoError(t, err)
	_, err = env.uploadFile(ctx, "u1", "report.txt", 10, &docs.ID)
	require.NoError(t, err)

	t.Run("root lists only direct children", func(t *testing.T) {
		content, err := env.folder.GetContents(ctx, "u1", nil)
		require.NoError(t, err)
		require.Len(t, content.Folders, 2)
		// Папки приходят отсортированными по имени
		assert.Equal(t, "Archive", content.Folders[0].Name)
		assert.Equal(t, "Documents", content.Folders[1].Name)
		require.Len(t, content.Files, 1)
		assert.Equal(t, "notes.txt", content.Files[0].Name)
	})

	t.Run("subfolder contents", func(t *testing.T) {
		content, err := env.folder.GetContents(ctx, "u1", &docs.ID)
		require.NoError(t, err)
		assert.Empty(t, content.Folders)
		require.Len(t, content.Files, 1)
		assert.Equal(t, "report.txt", content.Files[0].Name)
	})

	t.Run("foreign folder forbidden", func(t *testing.T) {
		_, err := env.folder.GetContents(ctx, "u2", &docs.ID)
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
	})
}

func TestGetPath(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a, err := env.folder.CreateFolder(ctx, "u1", "a", nil)
	require.NoError(t, err)
	b, err := env.folder.CreateFolder(ctx, "u1", "b", &a.ID)
	require.NoError(t, err)
	c, err := env.folder.CreateFolder(ctx, "u1", "c", &b.ID)
	require.NoError(t, err)

	path, err := env.folder.GetPath(ctx, "u1", c.ID)
	require.NoError(t, err)
	require.Len(t, path, 4)

	assert.Nil(t, path[0].ID)
	assert.Equal(t, "Root", path[0].Name)
	assert.Equal(t, "a", path[1].Name)
	assert.Equal(t, "b", path[2].Name)
	assert.Equal(t, "c", path[3].Name)
	require.NotNil(t, path[3].ID)
	assert.Equal(t, c.ID, *path[3].ID)
}

func TestRenameFolder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	docs, err := env.folder.CreateFolder(ctx, "u1", "Documents", nil)
	require.NoError(t, err)
	_, err = env.folder.CreateFolder(ctx, "u1", "Photos", nil)
	require.NoError(t, err)

	t.Run("renames", func(t *testing.T) {
		renamed, err := env.folder.RenameFolder(ctx, "u1", docs.ID, "Work")
		require.NoError(t, err)
		assert.Equal(t, "Work", renamed.Name)
	})

	t.Run("conflict with sibling", func(t *testing.T) {
		_, err := env.folder.RenameFolder(ctx, "u1", docs.ID, "Photos")
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("rename to own name is a no-op", func(t *testing.T) {
		_, err := env.folder.RenameFolder(ctx, "u1", docs.ID, "Work")
		require.NoError(t, err)
	})
}

func TestDeleteFolderRecursive(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1", "u1@example.com", 10000, 0)
	ctx := context.Background()

	// a/ (20 bytes) -> b/ (30 bytes) -> c/ (50 bytes)
	a, err := env.folder.CreateFolder(ctx, "u1", "a", nil)
	require.NoError(t, err)
	b, err := env.folder.CreateFolder(ctx, "u1", "b", &a.ID)
	require.NoError(t, err)
	c, err := env.folder.CreateFolder(ctx, "u1", "c", &b.ID)
	require.NoError(t, err)

	_, err = env.uploadFile(ctx, "u1", "one.txt", 20, &a.ID)
	require.NoError(t, err)
	_, err = env.uploadFile(ctx, "u1", "two.txt", 30, &b.ID)
	require.NoError(t, err)
	fc, err := env.uploadFile(ctx, "u1", "three.txt", 50, &c.ID)
	require.NoError(t, err)

	info, err := env.quota.StorageInfo(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), info.StorageUsed)

	require.NoError(t, env.folder.DeleteFolder(ctx, "u1", a.ID))

	// Все метаданные исчезли
	_, err = env.folder.GetFolder(ctx, "u1", a.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	_, err = env.folder.GetFolder(ctx, "u1", c.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	_, err = env.files.GetByUUID(ctx, fc.UUID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	// Квота освобождена на сумму удаленных файлов
	info, err = env.quota.StorageInfo(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.StorageUsed)

	// Байты подчищены
	assert.Empty(t, env.blob.objects)
}

func TestDeleteFolderSurvivesBlobFailure(t *testing.T) {
	env := newTestEnv()
	env.addUser("u1", "u1@example.com", 10000, 0)
	ctx := context.Background()

	a, err := env.folder.CreateFolder(ctx, "u1", "a", nil)
	require.NoError(t, err)
	f, err := env.uploadFile(ctx, "u1", "one.txt", 40, &a.ID)
	require.NoError(t, err)

	env.blob.failDelete = true

	// Отказ хранилища байтов не мешает удалению метаданных и квоте
	require.NoError(t, env.folder.DeleteFolder(ctx, "u1", a.ID))

	_, err = env.files.GetByUUID(ctx, f.UUID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	info, err := env.quota.StorageInfo(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.StorageUsed)
}

func TestDeleteFolderForeignForbidden(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	a, err := env.folder.CreateFolder(ctx, "u1", "a", nil)
	require.NoError(t, err)

	err = env.folder.DeleteFolder(ctx, "u2", a.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}
