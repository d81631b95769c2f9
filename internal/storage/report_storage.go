package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReportStorage каталог сгенерированных отчётов.
type ReportStorage struct {
	rootPath string
}

func NewReportStorage(rootPath string) (*ReportStorage, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: не удалось создать каталог отчётов %s: %w", rootPath, err)
	}
	return &ReportStorage{rootPath: rootPath}, nil
}

// Save записывает отчёт целиком; возвращает путь относительно корня.
func (s *ReportStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := safeJoin(s.rootPath, name)
	if err != nil {
		return "", err
	}
	tempPath := target + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: не удалось записать отчёт: %w", err)
	}
	if err := os.Rename(tempPath, target); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("storage: не удалось сохранить отчёт: %w", err)
	}
	return filepath.Base(target), nil
}

func (s *ReportStorage) Open(ctx context.Context, relativePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	target, err := safeJoin(s.rootPath, relativePath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("storage: не удалось открыть отчёт: %w", err)
	}
	return f, nil
}

func (s *ReportStorage) Delete(ctx context.Context, relativePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target, err := safeJoin(s.rootPath, relativePath)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: не удалось удалить отчёт: %w", err)
	}
	return nil
}
