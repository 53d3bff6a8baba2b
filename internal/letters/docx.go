package letters

import (
	"fmt"
	"os/exec"
	"strings"
)

// exportDOCX converts the rendered letter to DOCX via pandoc.
func exportDOCX(html, title string) (Result, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return Result{}, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	cmd := exec.Command("pandoc",
		"-f", "html",
		"-t", "docx",
		"--standalone",
		"-o", "-",
	)
	cmd.Stdin = strings.NewReader(html)

	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("pandoc conversion failed: %w", err)
	}

	return Result{
		Data:     output,
		Filename: sanitizeFilename(title) + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}
