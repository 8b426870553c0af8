package common

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// ErrNoLicense is returned when table extraction is requested without a unidoc key.
var ErrNoLicense = errors.New("table extraction requires a unidoc license key (pdf.unidoc_license_key)")

var (
	licenseOnce sync.Once
	licenseErr  error
)

func loadLicense(key string) error {
	licenseOnce.Do(func() {
		licenseErr = license.SetMeteredKey(key)
	})
	return licenseErr
}

// ExtractTablesFromPDFReader detects the tables on each page and returns every
// table row flattened to a single line. Rows of all tables on a page keep their
// top-to-bottom order.
func ExtractTablesFromPDFReader(reader io.Reader, licenseKey string) ([]Page, error) {
	if licenseKey == "" {
		return nil, ErrNoLicense
	}
	if err := loadLicense(licenseKey); err != nil {
		return nil, fmt.Errorf("failed to load unidoc license: %w", err)
	}

	rs, ok := reader.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(reader)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(b)
	}

	pdfReader, err := model.NewPdfReader(rs)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("failed to count pages: %w", err)
	}

	pages := make([]Page, 0, numPages)
	for no := 1; no <= numPages; no++ {
		page := Page{Number: no}

		rows, err := pageTableRows(pdfReader, no)
		if err != nil {
			log.Warn().Err(err).Int("page", no).Msg("could not read page tables")
		}
		for _, row := range rows {
			if line := FlattenRow(row); line != "" {
				page.Lines = append(page.Lines, line)
			}
		}
		pages = append(pages, page)
	}

	return pages, nil
}

func pageTableRows(pdfReader *model.PdfReader, no int) ([][]*string, error) {
	p, err := pdfReader.GetPage(no)
	if err != nil {
		return nil, err
	}
	ex, err := extractor.New(p)
	if err != nil {
		return nil, err
	}
	pageText, _, _, err := ex.ExtractPageText()
	if err != nil {
		return nil, err
	}

	var rows [][]*string
	for _, table := range pageText.Tables() {
		for y := 0; y < table.H; y++ {
			row := make([]*string, table.W)
			for x := 0; x < table.W; x++ {
				text := table.Cells[y][x].Text
				row[x] = &text
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}
