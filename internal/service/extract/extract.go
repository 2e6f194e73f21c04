package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"
)

// Предел размера извлеченного текста. Все, что сверх, отбрасывается с
// пометкой о усечении.
const (
	maxContentTextBytes = 1000000
	truncationSuffix    = "... [TEXT TRUNCATED]"
)

// Extractor извлекает текстовое содержимое загруженного файла. Извлечение
// best-effort: ошибка или неподдерживаемый тип дают пустой результат,
// загрузку это никогда не ломает.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// PlainTextExtractor обрабатывает текстовые MIME-типы. Бинарные форматы
// (pdf, docx) намеренно не разбираются.
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !isTextMIME(mimeType) {
		return "", nil
	}

	// Отбрасываем содержимое, которое не похоже на валидный текст
	if !utf8.Valid(data) || bytes.ContainsRune(data, 0) {
		return "", nil
	}

	text := string(data)
	if len(text) > maxContentTextBytes {
		text = text[:maxContentTextBytes] + truncationSuffix
	}

	return text, nil
}

func isTextMIME(mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if idx := strings.IndexByte(mt, ';'); idx >= 0 {
		mt = strings.TrimSpace(mt[:idx])
	}

	if strings.HasPrefix(mt, "text/") {
		return true
	}

	switch mt {
	case "application/json", "application/xml", "application/javascript",
		"application/x-yaml", "application/csv":
		return true
	}

	return false
}
