package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultdrive/internal/domain"
)

func TestCanAccessFileOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	file := &domain.File{UUID: uuid.New(), OwnerID: "owner", AccessLevel: domain.AccessPrivate}

	for _, capability := range []domain.Capability{
		domain.CapabilityRead,
		domain.CapabilityWrite,
		domain.CapabilityDelete,
		domain.CapabilityShare,
	} {
		allowed, err := env.access.CanAccessFile(ctx, file, "owner", capability)
		require.NoError(t, err)
		assert.True(t, allowed, "owner should have %s", capability)
	}
}

func TestCanAccessFileNonOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	fileUUID := uuid.New()

	tests := []struct {
		name       string
		level      domain.AccessLevel
		withShare  bool
		capability domain.Capability
		want       bool
	}{
		{"private read denied", domain.AccessPrivate, false, domain.CapabilityRead, false},
		{"public read allowed", domain.AccessPublic, false, domain.CapabilityRead, true},
		{"shared read without share denied", domain.AccessShared, false, domain.CapabilityRead, false},
		{"shared read with share allowed", domain.AccessShared, true, domain.CapabilityRead, true},
		{"public write denied", domain.AccessPublic, false, domain.CapabilityWrite, false},
		{"shared delete with share denied", domain.AccessShared, true, domain.CapabilityDelete, false},
		{"shared share with share denied", domain.AccessShared, true, domain.CapabilityShare, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.shares = newFakeShareRepo()
			env.access = NewAccessService(env.shares)

			if tt.withShare {
				require.NoError(t, env.shares.Create(ctx, &domain.Share{
					ID:           uuid.New(),
					ResourceID:   fileUUID.String(),
					ResourceType: domain.ResourceTypeFile,
					GranteeID:    "guest",
					Permission:   domain.PermissionView,
				}))
			}

			file := &domain.File{UUID: fileUUID, OwnerID: "owner", AccessLevel: tt.level}
			allowed, err := env.access.CanAccessFile(ctx, file, "guest", tt.capability)
			require.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestCanAccessFolderOwnerOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	folder := &domain.Folder{ID: 1, OwnerID: "owner", AccessLevel: domain.AccessShared}

	allowed, err := env.access.CanAccessFolder(ctx, folder, "owner", domain.CapabilityRead)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = env.access.CanAccessFolder(ctx, folder, "guest", domain.CapabilityRead)
	require.NoError(t, err)
	assert.False(t, allowed)
}
