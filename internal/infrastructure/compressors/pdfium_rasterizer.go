package compressors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	pdfium_errors "github.com/klippa-app/go-pdfium/errors"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"filecompressor/internal/domain/entities"
	"filecompressor/internal/domain/repositories"
)

// instanceTimeout время ожидания свободного экземпляра PDFium
const instanceTimeout = 30 * time.Second

// PDFiumRasterizer растеризация страниц PDF через PDFium (WebAssembly, без cgo)
type PDFiumRasterizer struct {
	instances int

	initOnce sync.Once
	pool     pdfium.Pool
	initErr  error
}

// NewPDFiumRasterizer создает растеризатор. Среда PDFium запускается при первом вызове.
func NewPDFiumRasterizer(instances int) *PDFiumRasterizer {
	if instances < 1 {
		instances = 1
	}
	return &PDFiumRasterizer{instances: instances}
}

func (r *PDFiumRasterizer) getPool() (pdfium.Pool, error) {
	r.initOnce.Do(func() {
		r.pool, r.initErr = webassembly.Init(webassembly.Config{
			MinIdle:  1,
			MaxIdle:  r.instances,
			MaxTotal: r.instances,
		})
		if r.initErr != nil {
			r.initErr = entities.NewProcessingError("запуск PDFium", r.initErr)
		}
	})
	return r.pool, r.initErr
}

// Close освобождает экземпляры PDFium
func (r *PDFiumRasterizer) Close() error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Close()
}

// document открытый документ на выделенном экземпляре
type document struct {
	instance pdfium.Pdfium
	ref      references.FPDF_DOCUMENT
	pages    int
}

func (d *document) close() {
	_, _ = d.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: d.ref})
	_ = d.instance.Close()
}

func (d *document) page(index int) requests.Page {
	return requests.Page{
		ByIndex: &requests.PageByIndex{Document: d.ref, Index: index},
	}
}

// open берет экземпляр из пула и открывает документ один раз на вызов
func (r *PDFiumRasterizer) open(data []byte, password string) (*document, error) {
	if len(data) == 0 {
		return nil, entities.NewValidationError("pdfium", entities.ErrEmptySource)
	}

	pool, err := r.getPool()
	if err != nil {
		return nil, err
	}

	instance, err := pool.GetInstance(instanceTimeout)
	if err != nil {
		return nil, entities.NewProcessingError("экземпляр PDFium", err)
	}

	req := &requests.OpenDocument{File: &data}
	if password != "" {
		req.Password = &password
	}

	doc, err := instance.OpenDocument(req)
	if err != nil {
		_ = instance.Close()
		if isPasswordError(err) {
			return nil, entities.NewProcessingError("pdfium", fmt.Errorf("%w: %v", entities.ErrEncrypted, err))
		}
		return nil, entities.NewDecodeError("pdfium", err)
	}

	d := &document{instance: instance, ref: doc.Document}

	count, err := instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{Document: doc.Document})
	if err != nil {
		d.close()
		return nil, entities.NewDecodeError("pdfium", err)
	}
	if count.PageCount == 0 {
		d.close()
		return nil, entities.NewProcessingError("pdfium", entities.ErrNoPages)
	}
	d.pages = count.PageCount

	return d, nil
}

func isPasswordError(err error) bool {
	return errors.Is(err, pdfium_errors.ErrPassword) ||
		strings.Contains(strings.ToLower(err.Error()), "password")
}

// PageCount возвращает количество страниц документа
func (r *PDFiumRasterizer) PageCount(ctx context.Context, data []byte, password string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, entities.NewCancelledError("pdfium", err)
	}

	doc, err := r.open(data, password)
	if err != nil {
		return 0, err
	}
	defer doc.close()

	return doc.pages, nil
}

// RenderPages отрисовывает страницы по порядку и передает каждую в fn.
// Изображение страницы действительно только во время вызова fn.
// Первая ошибка прерывает обработку.
func (r *PDFiumRasterizer) RenderPages(ctx context.Context, data []byte, password string, dpi int, fn repositories.PageRenderFunc) error {
	doc, err := r.open(data, password)
	if err != nil {
		return err
	}
	defer doc.close()

	for i := 0; i < doc.pages; i++ {
		// Отмена проверяется между страницами
		if err := ctx.Err(); err != nil {
			return entities.NewCancelledError("растеризация", err)
		}

		render, err := doc.instance.RenderPageInDPI(&requests.RenderPageInDPI{
			DPI:  dpi,
			Page: doc.page(i),
		})
		if err != nil {
			return entities.NewProcessingError(fmt.Sprintf("страница %d", i+1), err)
		}

		err = fn(i, doc.pages, render.Result.Image)
		render.Cleanup()
		if err != nil {
			return err
		}
	}

	return nil
}

// ExtractText возвращает текст каждой страницы документа
func (r *PDFiumRasterizer) ExtractText(ctx context.Context, data []byte, password string) ([]string, error) {
	doc, err := r.open(data, password)
	if err != nil {
		return nil, err
	}
	defer doc.close()

	texts := make([]string, 0, doc.pages)
	for i := 0; i < doc.pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, entities.NewCancelledError("извлечение текста", err)
		}

		text, err := doc.instance.GetPageText(&requests.GetPageText{Page: doc.page(i)})
		if err != nil {
			return nil, entities.NewProcessingError(fmt.Sprintf("текст страницы %d", i+1), err)
		}
		texts = append(texts, text.Text)
	}

	return texts, nil
}
