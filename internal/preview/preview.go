// Package preview composes a project's files into one self-contained HTML
// document for a sandboxed frame.
package preview

import (
	"strings"

	"github.com/starford/livepad/internal/bridge"
	"github.com/starford/livepad/internal/models"
)

// File name suffixes collected into the style and script blocks.
const (
	CSSSuffix = ".css"
	JSSuffix  = ".js"
)

// Title is the fixed document title.
const Title = "Project Preview"

// Compose builds the preview document. The body is the content of the file
// whose id equals activeID (empty when none matches). Every .css file goes
// into one <style> block and every .js file into one <script> block after
// the body, both in the given order and joined by newlines. The navigation
// bridge runs first in <head>. User content is embedded verbatim.
//
// Output depends only on the arguments.
func Compose(files []models.File, activeID int64) string {
	var body string
	var css, js []string
	for _, f := range files {
		if f.ID == activeID && activeID != models.NoFile {
			body = f.Content
		}
		switch {
		case strings.HasSuffix(f.FileName, CSSSuffix):
			css = append(css, f.Content)
		case strings.HasSuffix(f.FileName, JSSuffix):
			js = append(js, f.Content)
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n")
	b.WriteString(`<html lang="en">` + "\n")
	b.WriteString("<head>\n")
	b.WriteString(`<meta charset="UTF-8">` + "\n")
	b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1.0">` + "\n")
	b.WriteString("<title>" + Title + "</title>\n")
	b.WriteString("<script>\n")
	b.WriteString(bridge.Script)
	b.WriteString("</script>\n")
	b.WriteString("<style>\n")
	b.WriteString(strings.Join(css, "\n"))
	b.WriteString("\n</style>\n")
	b.WriteString("</head>\n")
	b.WriteString("<body>\n")
	b.WriteString(body)
	b.WriteString("\n<script>\n")
	b.WriteString(strings.Join(js, "\n"))
	b.WriteString("\n</script>\n")
	b.WriteString("</body>\n")
	b.WriteString("</html>\n")
	return b.String()
}
