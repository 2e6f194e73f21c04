package domain

// AccessLevel определяет базовую видимость файла или папки
type AccessLevel string

// Capability определяет запрашиваемую операцию над ресурсом
type Capability string

// SharePermission определяет уровень доступа, записанный в share
type SharePermission string

// ResourceType определяет тип ресурса share
type ResourceType string

const (
	AccessPrivate AccessLevel = "PRIVATE"
	AccessShared  AccessLevel = "SHARED"
	AccessPublic  AccessLevel = "PUBLIC"

	CapabilityRead   Capability = "READ"
	CapabilityWrite  Capability = "WRITE"
	CapabilityDelete Capability = "DELETE"
	CapabilityShare  Capability = "SHARE"

	PermissionView   SharePermission = "VIEW"
	PermissionEdit   SharePermission = "EDIT"
	PermissionManage SharePermission = "MANAGE"

	ResourceTypeFile   ResourceType = "FILE"
	ResourceTypeFolder ResourceType = "FOLDER"
)

func (l AccessLevel) Valid() bool {
	switch l {
	case AccessPrivate, AccessShared, AccessPublic:
		return true
	}
	return false
}

func (p SharePermission) Valid() bool {
	switch p {
	case PermissionView, PermissionEdit, PermissionManage:
		return true
	}
	return false
}
