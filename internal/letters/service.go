package letters

import (
	"context"
	"fmt"
)

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Generate renders the letter and converts it to the requested format.
// HTML output needs no external tooling; PDF requires Chromium, DOCX
// requires pandoc.
func (s *Service) Generate(ctx context.Context, kind Kind, data Data, format Format) (Result, error) {
	html, err := renderHTML(kind, data)
	if err != nil {
		return Result{}, err
	}

	switch format {
	case FormatHTML, "":
		return Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(kind.Title()) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(ctx, html, kind.Title())
	case FormatDOCX:
		return exportDOCX(html, kind.Title())
	default:
		return Result{}, fmt.Errorf("unsupported letter format %q", format)
	}
}
