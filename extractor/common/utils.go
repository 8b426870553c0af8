package common

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/dslipak/pdf"
	"github.com/rs/zerolog/log"
)

// readerAtWithSize returns an io.ReaderAt over the content and its size,
// buffering the reader in memory when it cannot seek.
func readerAtWithSize(reader io.Reader) (io.ReaderAt, int64, error) {
	switch v := reader.(type) {
	case io.ReaderAt:
		seeker, ok := reader.(io.Seeker)
		if !ok {
			return nil, 0, errors.New("reader is io.ReaderAt but not io.Seeker, cannot determine size")
		}
		cur, _ := seeker.Seek(0, io.SeekCurrent)
		end, err := seeker.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, err
		}
		if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return v, end, nil
	default:
		buf := new(bytes.Buffer)
		if _, err := buf.ReadFrom(reader); err != nil {
			return nil, 0, err
		}
		b := buf.Bytes()
		return bytes.NewReader(b), int64(len(b)), nil
	}
}

// ExtractPagesFromPDFReader returns the text rows of every page, in page order.
// Pages whose text cannot be read come back with no lines.
func ExtractPagesFromPDFReader(reader io.Reader) ([]Page, error) {
	rAt, size, err := readerAtWithSize(reader)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(rAt, size)
	if err != nil {
		return nil, err
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)

	for no := 1; no <= numPages; no++ {
		page := Page{Number: no}

		p := r.Page(no)
		if p.V.IsNull() {
			pages = append(pages, page)
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			log.Warn().Err(err).Int("page", no).Msg("could not read page text")
			pages = append(pages, page)
			continue
		}

		page.Lines = make([]string, 0, len(rows))
		for _, row := range rows {
			var builder strings.Builder
			for i, text := range row.Content {
				builder.WriteString(text.S)
				if i < len(row.Content)-1 {
					builder.WriteByte(' ')
				}
			}
			if builder.Len() > 0 {
				page.Lines = append(page.Lines, builder.String())
			}
		}
		pages = append(pages, page)
	}

	return pages, nil
}

func ExtractPagesFromPDF(path string) ([]Page, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ExtractPagesFromPDFReader(file)
}
