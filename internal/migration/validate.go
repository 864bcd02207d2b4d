package migration

import (
	"fmt"
	"os"

	"github.com/inkwell-app/inkwell/internal/models"
)

// Validate checks that every attachment's path, legacy or modern,
// resolves to an existing readable file. It is idempotent and purely
// observational: nothing is mutated, inaccessible files are only
// reported. Use it to detect post-migration bit rot or files removed
// behind the store's back.
func (e *Engine) Validate() (*models.ValidationReport, error) {
	attachments, err := e.db.ListAttachments()
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	report := &models.ValidationReport{Total: len(attachments)}

	for i := range attachments {
		resolved := e.Resolve(attachments[i].Path)
		if readable(resolved) {
			report.Accessible++
			continue
		}
		report.Inaccessible++
		report.InaccessibleFiles = append(report.InaccessibleFiles, resolved)
	}

	return report, nil
}

// readable reports whether the file exists and can actually be opened,
// not just stat'ed.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
