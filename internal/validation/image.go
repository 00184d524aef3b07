// Package validation содержит функции проверки входных данных клиента.
package validation

import (
	"path"
	"strings"
)

const localFileScheme = "file://"

// IsLocalFileURI сообщает, указывает ли URI на файл устройства, который ещё не загружен на сервер.
func IsLocalFileURI(uri string) bool {
	return strings.HasPrefix(strings.TrimSpace(uri), localFileScheme)
}

// ImageFileName возвращает имя файла из URI изображения.
func ImageFileName(uri string) string {
	name := path.Base(strings.TrimPrefix(strings.TrimSpace(uri), localFileScheme))
	if name == "." || name == "/" {
		return "image.jpg"
	}
	return name
}

// ImageContentType определяет MIME-тип изображения по расширению файла, по умолчанию image/jpeg.
func ImageContentType(filename string) string {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		return "image/jpeg"
	}
	for _, ch := range ext {
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_') {
			return "image/jpeg"
		}
	}
	return "image/" + ext
}

// LocalFilePath возвращает путь к файлу на диске для URI вида file:///path.
func LocalFilePath(uri string) string {
	return strings.TrimPrefix(strings.TrimSpace(uri), localFileScheme)
}
