package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
)

// ErrNotImage загруженный файл не является изображением.
var ErrNotImage = errors.New("storage: разрешены только изображения")

// ErrTooLarge файл больше допустимого размера.
var ErrTooLarge = errors.New("storage: размер файла превышает лимит")

// Разрешённые типы изображений (по магическим байтам).
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heif": true,
}

// PhotoStorage файловое хранилище фотографий обращений.
type PhotoStorage struct {
	rootPath       string
	baseURL        string
	maxUploadBytes int64
}

// NewPhotoStorage создаёт каталог хранилища; baseURL используется для публичных ссылок.
func NewPhotoStorage(rootPath, baseURL string, maxUploadMB int64) (*PhotoStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог %s: %w", rootPath, err)
	}

	return &PhotoStorage{
		rootPath:       rootPath,
		baseURL:        strings.TrimRight(baseURL, "/"),
		maxUploadBytes: maxUploadMB * 1024 * 1024,
	}, nil
}

// Root корневой каталог для раздачи статики.
func (s *PhotoStorage) Root() string {
	return s.rootPath
}

// Save проверяет тип по первым байтам и пишет файл в каталог обращения.
// Возвращает относительный путь, размер и MIME тип.
func (s *PhotoStorage) Save(ctx context.Context, incidentID uuid.UUID, originalName string, r io.Reader) (string, int64, string, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(261)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", 0, "", fmt.Errorf("storage: не удалось прочитать файл: %w", err)
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown || !allowedMimeTypes[kind.MIME.Value] {
		return "", 0, "", ErrNotImage
	}

	dir := filepath.Join(s.rootPath, incidentID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, "", fmt.Errorf("storage: не удалось создать каталог обращения: %w", err)
	}

	// Расширение берём из реального типа, а не из имени клиента.
	fileName := fmt.Sprintf("%d_%s.%s", time.Now().UnixNano(), stem(originalName), kind.Extension)
	targetPath := filepath.Join(dir, fileName)
	tempPath := targetPath + ".tmp"

	f, err := os.Create(tempPath)
	if err != nil {
		return "", 0, "", fmt.Errorf("storage: не удалось создать файл: %w", err)
	}

	limited := io.LimitedReader{R: br, N: s.maxUploadBytes + 1}
	written, err := io.Copy(f, &limited)
	closeErr := f.Close()
	if err != nil {
		_ = os.Remove(tempPath)
		return "", 0, "", fmt.Errorf("storage: ошибка записи файла: %w", err)
	}
	if written > s.maxUploadBytes {
		_ = os.Remove(tempPath)
		return "", 0, "", fmt.Errorf("%w (%d байт)", ErrTooLarge, s.maxUploadBytes)
	}
	if closeErr != nil {
		_ = os.Remove(tempPath)
		return "", 0, "", fmt.Errorf("storage: ошибка закрытия файла: %w", closeErr)
	}

	if err := os.Rename(tempPath, targetPath); err != nil {
		return "", 0, "", fmt.Errorf("storage: не удалось переименовать файл: %w", err)
	}

	return path.Join(incidentID.String(), fileName), written, kind.MIME.Value, nil
}

// Delete удаляет файл; отсутствующий файл ошибкой не считается.
func (s *PhotoStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := s.resolve(relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить файл: %w", err)
	}
	return nil
}

// URLFor публичная ссылка на сохранённый файл.
func (s *PhotoStorage) URLFor(relativePath string) string {
	return s.baseURL + "/" + strings.TrimLeft(filepath.ToSlash(relativePath), "/")
}

func (s *PhotoStorage) resolve(relativePath string) (string, error) {
	return safeJoin(s.rootPath, relativePath)
}

// safeJoin не даёт выйти за пределы корня хранилища.
func safeJoin(root, relativePath string) (string, error) {
	cleaned := filepath.Clean("/" + filepath.FromSlash(relativePath))
	target := filepath.Join(root, cleaned)
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("storage: некорректный путь %q", relativePath)
	}
	return target, nil
}

// stem очищенное имя файла без расширения.
func stem(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || strings.Trim(out, "_") == "" {
		return "photo"
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
