package blob

import (
	"context"
	"io"
)

// Storage определяет интерфейс байтового хранилища. Ключи генерируются
// движком один раз на файл и никогда не переиспользуются.
type Storage interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete удаляет объект; отсутствие объекта не считается ошибкой.
	Delete(ctx context.Context, key string) error
}
