package repositories

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"filecompressor/internal/domain/entities"
)

// FileSystemRepository реализация репозитория для работы с файловой системой
type FileSystemRepository struct{}

// NewFileSystemRepository создает новый репозиторий файловой системы
func NewFileSystemRepository() *FileSystemRepository {
	return &FileSystemRepository{}
}

// FileSize возвращает размер файла
func (r *FileSystemRepository) FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// WriteFileAtomic записывает данные через временный файл в каталоге назначения.
// Файл по пути path либо не меняется, либо содержит data целиком.
// Каталог назначения должен существовать.
func (r *FileSystemRepository) WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return entities.NewIOError("создание временного файла", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return entities.NewIOError("запись "+tmpPath, err)
	}
	if err = tmp.Sync(); err != nil {
		return entities.NewIOError("синхронизация "+tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return entities.NewIOError("закрытие "+tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return entities.NewIOError("права "+tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return entities.NewIOError(fmt.Sprintf("переименование в %s", path), err)
	}

	// Переименование становится постоянным только после синхронизации каталога
	return SyncDir(dir)
}

// SyncDir сбрасывает на диск запись каталога
func SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return entities.NewIOError("открытие каталога "+dir, err)
	}
	if err := d.Sync(); err != nil {
		_ = d.Close()
		return entities.NewIOError("синхронизация каталога "+dir, err)
	}
	if err := d.Close(); err != nil {
		return entities.NewIOError("закрытие каталога "+dir, err)
	}
	return nil
}

// ListFiles возвращает отсортированный список файлов каталога и подкаталогов,
// для которых match возвращает true
func (r *FileSystemRepository) ListFiles(directory string, match func(name string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
