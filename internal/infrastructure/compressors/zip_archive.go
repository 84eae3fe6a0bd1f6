package compressors

import (
	"bytes"
	"time"

	"github.com/klauspost/compress/zip"

	"filecompressor/internal/domain/entities"
)

// PageArchive zip-архив страниц в памяти.
// Записи добавляются в порядке вызовов Add.
type PageArchive struct {
	buf      bytes.Buffer
	zw       *zip.Writer
	modified time.Time
	entries  int
}

// NewPageArchive создает пустой архив
func NewPageArchive() *PageArchive {
	a := &PageArchive{modified: time.Now()}
	a.zw = zip.NewWriter(&a.buf)
	return a
}

// Add добавляет запись. JPEG уже сжат и хранится без сжатия, PNG сжимается deflate.
func (a *PageArchive) Add(name string, format entities.OutputFormat, data []byte) error {
	method := zip.Deflate
	if format == entities.FormatJPEG {
		method = zip.Store
	}

	w, err := a.zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: a.modified,
	})
	if err != nil {
		return entities.NewEncodeError("zip "+name, err)
	}
	if _, err := w.Write(data); err != nil {
		return entities.NewEncodeError("zip "+name, err)
	}

	a.entries++
	return nil
}

// Len возвращает число записей
func (a *PageArchive) Len() int {
	return a.entries
}

// Bytes закрывает архив и возвращает его содержимое
func (a *PageArchive) Bytes() ([]byte, error) {
	if err := a.zw.Close(); err != nil {
		return nil, entities.NewEncodeError("zip", err)
	}
	return a.buf.Bytes(), nil
}
