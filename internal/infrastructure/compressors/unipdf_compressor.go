package compressors

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/unidoc/unipdf/v3/common"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/unidoc/unipdf/v3/model/optimize"

	"filecompressor/internal/domain/entities"
)

// LicenseEnvVar переменная окружения с ключом UniPDF
const LicenseEnvVar = "UNIDOC_LICENSE_API_KEY"

var (
	licenseOnce sync.Once
	licenseErr  error
)

// UniPDFCompressor реализация компрессора с использованием UniPDF
type UniPDFCompressor struct {
	licenseKey string
}

// NewUniPDFCompressor создает новый UniPDF компрессор.
// Пустой ключ берется из переменной UNIDOC_LICENSE_API_KEY.
func NewUniPDFCompressor(licenseKey string) *UniPDFCompressor {
	if licenseKey == "" {
		licenseKey = os.Getenv(LicenseEnvVar)
	}
	return &UniPDFCompressor{licenseKey: licenseKey}
}

// activate устанавливает ключ лицензии один раз на процесс
func (u *UniPDFCompressor) activate() error {
	if u.licenseKey == "" {
		return entities.NewProcessingError("unipdf", fmt.Errorf("%w: задайте unipdf_license_key или %s, либо используйте движок pdfcpu", entities.ErrLicenseRequired, LicenseEnvVar))
	}

	licenseOnce.Do(func() {
		// UniPDF пишет в консоль по умолчанию, а консоль занята TUI
		common.SetLogger(common.DummyLogger{})
		if err := license.SetMeteredKey(u.licenseKey); err != nil {
			licenseErr = entities.NewProcessingError("лицензия unipdf", fmt.Errorf("%w: %v", entities.ErrLicenseRequired, err))
		}
	})
	return licenseErr
}

// Recompress пересобирает документ через оптимизатор UniPDF с заданным качеством изображений
func (u *UniPDFCompressor) Recompress(ctx context.Context, data []byte, quality int, password string) ([]byte, error) {
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, err
	}
	if err := u.activate(); err != nil {
		return nil, err
	}

	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return nil, entities.NewDecodeError("unipdf", err)
	}

	encrypted, err := pdfReader.IsEncrypted()
	if err != nil {
		return nil, entities.NewDecodeError("unipdf", err)
	}
	if encrypted {
		ok, err := pdfReader.Decrypt([]byte(password))
		if err != nil || !ok {
			return nil, entities.NewProcessingError("unipdf", entities.ErrEncrypted)
		}
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, entities.NewDecodeError("unipdf", err)
	}
	if numPages == 0 {
		return nil, entities.NewProcessingError("unipdf", entities.ErrNoPages)
	}

	pdfWriter := model.NewPdfWriter()
	pdfWriter.SetOptimizer(optimize.New(optimize.Options{
		CombineDuplicateDirectObjects:   true,
		CombineIdenticalIndirectObjects: true,
		CombineDuplicateStreams:         true,
		CompressStreams:                 true,
		ImageQuality:                    quality,
	}))

	// Копируем страницы
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, entities.NewCancelledError("unipdf", err)
		}

		page, err := pdfReader.GetPage(i)
		if err != nil {
			return nil, entities.NewDecodeError(fmt.Sprintf("страница %d", i), err)
		}
		if err := pdfWriter.AddPage(page); err != nil {
			return nil, entities.NewProcessingError(fmt.Sprintf("страница %d", i), err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, entities.NewCancelledError("unipdf", err)
	}

	var out bytes.Buffer
	if err := pdfWriter.Write(&out); err != nil {
		return nil, entities.NewProcessingError("запись unipdf", err)
	}
	return out.Bytes(), nil
}
