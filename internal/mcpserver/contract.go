package mcpserver

// PreviewContract describes how livepad combines project files into the
// preview page. LLM consumers should read it before writing files.
const PreviewContract = `# livepad Preview Contract

A project is a flat list of named files. The preview page is generated from
them on every change; nothing else is served to the browser.

## Composition

1. The **active file** supplies the page body. Its content is inserted verbatim
   inside ` + "`<body>`" + `. Only one file is active at a time; by default it is the first
   file of the project.
2. Every file ending in ` + "`.css`" + ` is concatenated in tab order (newline separated)
   into a single ` + "`<style>`" + ` block in ` + "`<head>`" + `.
3. Every file ending in ` + "`.js`" + ` is concatenated in tab order into a single
   ` + "`<script>`" + ` block placed after the body content.
4. The page shell (doctype, ` + "`<html>`" + `, ` + "`<head>`" + ` with charset and viewport meta, title
   "Project Preview") is generated. Do **not** write ` + "`<html>`, `<head>` or `<body>`" + `
   tags in page files; write body markup only.
5. Other files (json, svg, txt) are stored and searchable but are not part of
   the page.

## Navigation

- Links between pages are plain anchors whose ` + "`href`" + ` is the target file name:
  ` + "`<a href=\"about.html\">About</a>`" + `.
- Clicking such a link in the preview switches the active file instead of
  loading a URL. Unknown targets are ignored.
- Query strings, fragments and absolute URLs are passed through unchanged and
  will not match a file.

## File names

- Letters, digits, ` + "`.`, `_` and `-`" + ` only, starting with a letter or digit,
  at most 128 characters. No directories.
- Names are unique within a project.

## Example

` + "```" + `text
index.html   <h1>Home</h1><a href="about.html">About us</a>
about.html   <h1>About</h1><a href="index.html">Back</a>
site.css     h1 { color: teal; }
app.js       console.log("loaded");
` + "```" + `
`
