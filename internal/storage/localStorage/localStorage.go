package localStorage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/KotFed0t/basket_shares/utils"
)

type LocalStorage struct{}

func New() *LocalStorage {
	return &LocalStorage{}
}

// SaveFile writes reader to filename through a temp file in the same directory, so a failed
// write never leaves a truncated report behind.
func (s *LocalStorage) SaveFile(ctx context.Context, reader io.Reader, filename string) (location string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LocalStorage.SaveFile"

	slog.Debug("SaveFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, reader); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", filename, err)
	}

	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", err
	}

	if err = os.Rename(tmp.Name(), filename); err != nil {
		return "", fmt.Errorf("rename to %s: %w", filename, err)
	}

	location, err = filepath.Abs(filename)
	if err != nil {
		return filename, nil
	}

	slog.Debug("SaveFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("location", location))

	return location, nil
}
