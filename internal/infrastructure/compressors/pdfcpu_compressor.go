package compressors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sort"
	"strconv"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"filecompressor/internal/domain/entities"
)

var disableConfigDir sync.Once

// PDFCPUCompressor реализация компрессора с использованием PDFCPU
type PDFCPUCompressor struct{}

// NewPDFCPUCompressor создает новый PDFCPU компрессор
func NewPDFCPUCompressor() *PDFCPUCompressor {
	// pdfcpu не должен читать и создавать свой каталог конфигурации
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFCPUCompressor{}
}

// Recompress пересжимает встроенные растровые изображения документа.
// Изображение заменяется только если новый поток меньше исходного.
// Текст, шрифты и прочие объекты не изменяются.
func (p *PDFCPUCompressor) Recompress(ctx context.Context, data []byte, quality int, password string) ([]byte, error) {
	out, _, err := p.RecompressWithStats(ctx, data, quality, password)
	return out, err
}

// RecompressWithStats то же, что Recompress, но дополнительно возвращает статистику
func (p *PDFCPUCompressor) RecompressWithStats(ctx context.Context, data []byte, quality int, password string) ([]byte, entities.RecompressStats, error) {
	var stats entities.RecompressStats
	if err := entities.ValidateQuality(quality); err != nil {
		return nil, stats, err
	}

	pdfCtx, err := p.readContext(data, password)
	if err != nil {
		return nil, stats, err
	}

	if pdfCtx.PageCount == 0 {
		return nil, stats, entities.NewProcessingError("pdfcpu", entities.ErrNoPages)
	}

	stats, err = recompressImages(ctx, pdfCtx, quality)
	if err != nil {
		return nil, stats, err
	}

	// Удаление дубликатов объектов и неиспользуемых ресурсов
	if err := api.OptimizeContext(pdfCtx); err != nil {
		return nil, stats, entities.NewProcessingError("оптимизация pdfcpu", err)
	}

	var out bytes.Buffer
	if err := api.WriteContext(pdfCtx, &out); err != nil {
		return nil, stats, entities.NewProcessingError("запись pdfcpu", err)
	}

	return out.Bytes(), stats, nil
}

// PageCount возвращает количество страниц документа
func (p *PDFCPUCompressor) PageCount(data []byte, password string) (int, error) {
	pdfCtx, err := p.readContext(data, password)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

// readContext читает и проверяет документ
func (p *PDFCPUCompressor) readContext(data []byte, password string) (*model.Context, error) {
	if !bytes.Contains(data[:min(len(data), 1024)], []byte("%PDF-")) {
		return nil, entities.NewDecodeError("pdfcpu", errors.New("отсутствует заголовок %PDF"))
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		if isEncrypted(data) {
			return nil, entities.NewProcessingError("pdfcpu", fmt.Errorf("%w: %v", entities.ErrEncrypted, err))
		}
		return nil, entities.NewDecodeError("pdfcpu", err)
	}

	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, entities.NewDecodeError("валидация pdfcpu", err)
	}

	return pdfCtx, nil
}

// isEncrypted проверяет наличие ключа /Encrypt в последнем трейлере.
// Без классического трейлера проверяется словарь потока ссылок по смещению startxref.
func isEncrypted(data []byte) bool {
	encrypt := []byte("/Encrypt")

	if i := bytes.LastIndex(data, []byte("trailer")); i >= 0 {
		return bytes.Contains(data[i:], encrypt)
	}

	offset, ok := startXRef(data)
	if !ok {
		return false
	}
	dict := data[offset:]
	if end := bytes.Index(dict, []byte("stream")); end >= 0 {
		dict = dict[:end]
	}
	return bytes.Contains(dict, encrypt)
}

// startXRef возвращает смещение последней таблицы или потока ссылок
func startXRef(data []byte) (int, bool) {
	i := bytes.LastIndex(data, []byte("startxref"))
	if i < 0 {
		return 0, false
	}
	fields := bytes.Fields(data[i+len("startxref"):])
	if len(fields) == 0 {
		return 0, false
	}
	offset, err := strconv.Atoi(string(fields[0]))
	if err != nil || offset < 0 || offset >= len(data) {
		return 0, false
	}
	return offset, true
}

// recompressImages обходит объекты изображений в порядке номеров объектов
func recompressImages(ctx context.Context, pdfCtx *model.Context, quality int) (entities.RecompressStats, error) {
	var stats entities.RecompressStats

	objNrs := make([]int, 0, len(pdfCtx.Table))
	for objNr := range pdfCtx.Table {
		objNrs = append(objNrs, objNr)
	}
	sort.Ints(objNrs)

	// Мягкие маски остаются без потерь
	masks := softMaskObjects(pdfCtx, objNrs)

	for _, objNr := range objNrs {
		entry := pdfCtx.Table[objNr]
		if entry == nil || entry.Free || entry.Object == nil || masks[objNr] {
			continue
		}

		sd, ok := entry.Object.(types.StreamDict)
		if !ok || !isImageStream(sd) {
			continue
		}

		// Отмена проверяется между изображениями
		if err := ctx.Err(); err != nil {
			return stats, entities.NewCancelledError("pdfcpu", err)
		}

		stats.Images++
		stats.BytesBefore += int64(len(sd.Raw))

		replaced, ok := recompressImageStream(sd, quality)
		if !ok {
			stats.BytesAfter += int64(len(sd.Raw))
			continue
		}

		entry.Object = replaced
		stats.Replaced++
		stats.BytesAfter += int64(len(replaced.Raw))
	}

	return stats, nil
}

// softMaskObjects собирает номера объектов, на которые ссылаются /SMask изображений
func softMaskObjects(pdfCtx *model.Context, objNrs []int) map[int]bool {
	masks := make(map[int]bool)
	for _, objNr := range objNrs {
		entry := pdfCtx.Table[objNr]
		if entry == nil || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok || !isImageStream(sd) {
			continue
		}
		if obj, found := sd.Find("SMask"); found {
			if ref, ok := obj.(types.IndirectRef); ok {
				masks[ref.ObjectNumber.Value()] = true
			}
		}
	}
	return masks
}

func isImageStream(sd types.StreamDict) bool {
	subtype := sd.Subtype()
	return subtype != nil && *subtype == "Image"
}

// recompressImageStream возвращает новый поток, если JPEG-кодирование дало выигрыш
func recompressImageStream(sd types.StreamDict, quality int) (types.StreamDict, bool) {
	img, ok := decodeImageStream(sd)
	if !ok {
		return sd, false
	}

	encoded, err := EncodeJPEG(img, quality)
	if err != nil || len(encoded) >= len(sd.Raw) {
		// Пересжатие не должно увеличивать поток
		return sd, false
	}

	length := int64(len(encoded))
	sd.Raw = encoded
	sd.Content = nil
	sd.StreamLength = &length
	sd.StreamLengthObjNr = nil
	sd.FilterPipeline = []types.PDFFilter{{Name: filter.DCT}}

	// Словарь копируется, чтобы не менять разделяемую карту исходного объекта
	dict := types.NewDict()
	for k, v := range sd.Dict {
		dict[k] = v
	}
	dict.Update("Length", types.Integer(len(encoded)))
	dict.Update("Filter", types.Name(filter.DCT))
	dict.Delete("DecodeParms")
	sd.Dict = dict

	return sd, true
}

// decodeImageStream декодирует поддерживаемые виды изображений:
// DCTDecode в RGB/Gray и FlateDecode 8 бит DeviceRGB/DeviceGray.
// Изображения с цветовой маской /Mask не трогаются: маска сравнивает точные значения.
func decodeImageStream(sd types.StreamDict) (image.Image, bool) {
	if len(sd.FilterPipeline) != 1 || len(sd.Raw) == 0 {
		return nil, false
	}
	if m := sd.BooleanEntry("ImageMask"); m != nil && *m {
		return nil, false
	}
	if _, found := sd.Find("Mask"); found {
		return nil, false
	}

	switch sd.FilterPipeline[0].Name {
	case filter.DCT:
		img, err := jpeg.Decode(bytes.NewReader(sd.Raw))
		if err != nil {
			return nil, false
		}
		// CMYK не переносится в YCbCr без потери цветового пространства документа
		if _, cmyk := img.(*image.CMYK); cmyk {
			return nil, false
		}
		return img, true

	case filter.Flate:
		return decodeFlateImage(sd)
	}

	return nil, false
}

func decodeFlateImage(sd types.StreamDict) (image.Image, bool) {
	if _, found := sd.Find("Decode"); found {
		return nil, false
	}

	bpc := sd.IntEntry("BitsPerComponent")
	width := sd.IntEntry("Width")
	height := sd.IntEntry("Height")
	cs := sd.NameEntry("ColorSpace")
	if bpc == nil || *bpc != 8 || width == nil || height == nil || cs == nil {
		return nil, false
	}
	w, h := *width, *height
	if w <= 0 || h <= 0 {
		return nil, false
	}

	if err := sd.Decode(); err != nil {
		return nil, false
	}
	content := sd.Content

	switch *cs {
	case "DeviceRGB":
		if len(content) < w*h*3 {
			return nil, false
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for i, j := 0, 0; i < w*h; i, j = i+1, j+3 {
			img.Pix[i*4] = content[j]
			img.Pix[i*4+1] = content[j+1]
			img.Pix[i*4+2] = content[j+2]
			img.Pix[i*4+3] = 0xff
		}
		return img, true

	case "DeviceGray":
		if len(content) < w*h {
			return nil, false
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, content[:w*h])
		return img, true
	}

	return nil, false
}
