// Package testutil строит тестовые PDF и изображения в памяти
package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/klauspost/compress/zlib"
)

// PDFOptions параметры тестового документа
type PDFOptions struct {
	// Pages число страниц, каждая содержит строку "Page N" шрифтом Helvetica
	Pages int
	// JPEG встраивается как изображение на первую страницу
	JPEG []byte
	// JPEGSize размеры встраиваемого JPEG
	JPEGSize image.Point
	// Images дополнительные изображения первой страницы
	Images []PDFImage
}

// PDFImage поток изображения XObject
type PDFImage struct {
	Width, Height int
	ColorSpace    string
	Filter        string
	Data          []byte
	// Extra дополнительные записи словаря, например "/Decode [1 0 1 0 1 0]"
	Extra string
	// SMask мягкая маска, записывается отдельным объектом
	SMask *PDFImage
}

// FlateRGB несжатые RGB-пиксели изображения в потоке FlateDecode
func FlateRGB(img image.Image) PDFImage {
	b := img.Bounds()
	raw := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			raw = append(raw, c.R, c.G, c.B)
		}
	}
	return PDFImage{Width: b.Dx(), Height: b.Dy(), ColorSpace: "DeviceRGB", Filter: "FlateDecode", Data: deflate(raw)}
}

// FlateGray пиксели изображения в оттенках серого в потоке FlateDecode
func FlateGray(img image.Image) PDFImage {
	b := img.Bounds()
	raw := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			raw = append(raw, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
		}
	}
	return PDFImage{Width: b.Dx(), Height: b.Dy(), ColorSpace: "DeviceGray", Filter: "FlateDecode", Data: deflate(raw)}
}

// DCTImage JPEG в потоке DCTDecode
func DCTImage(data []byte, size image.Point) PDFImage {
	return PDFImage{Width: size.X, Height: size.Y, ColorSpace: "DeviceRGB", Filter: "DCTDecode", Data: data}
}

func deflate(raw []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		panic(err)
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type pdfWriter struct {
	buf     bytes.Buffer
	offsets []int
}

func (w *pdfWriter) object(num int, body []byte) {
	for len(w.offsets) < num {
		w.offsets = append(w.offsets, 0)
	}
	w.offsets[num-1] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n", num)
	w.buf.Write(body)
	w.buf.WriteString("\nendobj\n")
}

func (w *pdfWriter) stream(num int, dict string, data []byte) {
	var body bytes.Buffer
	fmt.Fprintf(&body, "<< %s /Length %d >>\nstream\n", dict, len(data))
	body.Write(data)
	body.WriteString("\nendstream")
	w.object(num, body.Bytes())
}

func (w *pdfWriter) image(num int, img PDFImage, extra string) {
	w.stream(num, fmt.Sprintf(
		"/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /%s /BitsPerComponent 8 /Filter /%s %s",
		img.Width, img.Height, img.ColorSpace, img.Filter, extra), img.Data)
}

// BuildPDF возвращает корректный документ с точной таблицей xref
func BuildPDF(opts PDFOptions) []byte {
	const (
		catalogObj = 1
		pagesObj   = 2
		fontObj    = 3
	)

	images := opts.Images
	if len(opts.JPEG) > 0 {
		images = append([]PDFImage{DCTImage(opts.JPEG, opts.JPEGSize)}, images...)
	}

	w := &pdfWriter{}
	w.buf.WriteString("%PDF-1.4\n%\xE2\xE3\xCF\xD3\n")

	next := fontObj + 1
	imageObjs := make([]int, len(images))
	for i, img := range images {
		imageObjs[i] = next
		next++
		extra := img.Extra
		if img.SMask != nil {
			extra += fmt.Sprintf(" /SMask %d 0 R", next)
			w.image(next, *img.SMask, "")
			next++
		}
		w.image(imageObjs[i], img, extra)
	}
	firstPageObj := next

	w.object(catalogObj, []byte(fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)))

	var kids bytes.Buffer
	for i := 0; i < opts.Pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", firstPageObj+i*2)
	}
	w.object(pagesObj, []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids.Bytes()), opts.Pages)))

	w.object(fontObj, []byte("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"))

	for i := 0; i < opts.Pages; i++ {
		pageObj := firstPageObj + i*2
		contentObj := pageObj + 1

		resources := fmt.Sprintf("/Font << /F1 %d 0 R >>", fontObj)
		content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
		if i == 0 && len(images) > 0 {
			var xobjects bytes.Buffer
			for j, img := range images {
				fmt.Fprintf(&xobjects, "/Im%d %d 0 R ", j+1, imageObjs[j])
				content += fmt.Sprintf("\nq %d 0 0 %d 72 %d cm /Im%d Do Q", img.Width, img.Height, 300-j*10, j+1)
			}
			resources += fmt.Sprintf(" /XObject << %s>>", xobjects.String())
		}

		w.object(pageObj, []byte(fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << %s >> /Contents %d 0 R >>",
			pagesObj, resources, contentObj)))
		w.stream(contentObj, "", []byte(content))
	}

	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", len(w.offsets)+1)
	w.buf.WriteString("0000000000 65535 f \n")
	for _, off := range w.offsets {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(w.offsets)+1, catalogObj, xref)

	return w.buf.Bytes()
}

// TextPDF документ из pages страниц с текстом
func TextPDF(pages int) []byte {
	return BuildPDF(PDFOptions{Pages: pages})
}

// CorruptPDF данные с заголовком PDF, но без структуры документа
func CorruptPDF() []byte {
	return []byte("%PDF-1.4\nthis is not a pdf body\n%%EOF\n")
}
