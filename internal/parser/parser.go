// Package parser classifies project files and extracts titles and file links.
package parser

import (
	"html"
	"path"
	"regexp"
	"strings"
)

// Kind is the role a file plays when a preview is composed.
type Kind string

// File kinds, derived from the file name extension.
const (
	KindHTML  Kind = "html"
	KindCSS   Kind = "css"
	KindJS    Kind = "js"
	KindOther Kind = "other"
)

var (
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	h1Re     = regexp.MustCompile(`(?is)<h1[^>]*>(.*?)</h1>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	hrefRe   = regexp.MustCompile(`(?i)<a\s[^>]*?href\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s>]+))`)
	schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)
)

// Result holds the output of parsing one project file.
type Result struct {
	Kind  Kind
	Body  string
	Title string
	Links []string
}

// KindOf sniffs a file's kind from its name.
func KindOf(fileName string) Kind {
	switch strings.ToLower(path.Ext(fileName)) {
	case ".html", ".htm":
		return KindHTML
	case ".css":
		return KindCSS
	case ".js", ".mjs":
		return KindJS
	default:
		return KindOther
	}
}

// Parse extracts the title and relative link targets from a file.
// Only HTML files carry titles and links.
func Parse(fileName string, data []byte) *Result {
	res := &Result{Kind: KindOf(fileName), Body: string(data)}
	if res.Kind != KindHTML {
		return res
	}
	res.Title = deriveTitle(res.Body)
	res.Links = extractLinks(res.Body)
	return res
}

// deriveTitle returns the <title> text if present, otherwise the first <h1>.
func deriveTitle(body string) string {
	for _, re := range []*regexp.Regexp{titleRe, h1Re} {
		if m := re.FindStringSubmatch(body); m != nil {
			text := strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(m[1], "")))
			if text != "" {
				return text
			}
		}
	}
	return ""
}

// extractLinks returns deduplicated anchor targets that point at sibling files.
// Fragments and query strings are dropped; external and absolute URLs are skipped.
func extractLinks(body string) []string {
	matches := hrefRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := m[1] + m[2] + m[3]
		target = strings.TrimSpace(html.UnescapeString(target))
		if i := strings.IndexAny(target, "#?"); i >= 0 {
			target = target[:i]
		}
		target = strings.TrimPrefix(target, "./")
		if target == "" || strings.HasPrefix(target, "/") || schemeRe.MatchString(target) {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
