package parser

import (
	"reflect"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"index.html": KindHTML,
		"About.HTM":  KindHTML,
		"style.css":  KindCSS,
		"app.js":     KindJS,
		"mod.mjs":    KindJS,
		"notes.txt":  KindOther,
		"Makefile":   KindOther,
		"style.css~": KindOther,
	}
	for name, want := range cases {
		if got := KindOf(name); got != want {
			t.Errorf("KindOf(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParse_TitleFromTitleTag(t *testing.T) {
	r := Parse("index.html", []byte("<html><head><title> Home &amp; Away </title></head><h1>Ignored</h1></html>"))
	if r.Title != "Home & Away" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_TitleFallsBackToH1(t *testing.T) {
	r := Parse("index.html", []byte("<h1 class=\"x\">Hello <em>there</em></h1>"))
	if r.Title != "Hello there" {
		t.Errorf("title = %q", r.Title)
	}
}

func TestParse_Links(t *testing.T) {
	body := `<a href="about.html">About</a>
<a href='./contact.html#form'>Contact</a>
<a href=gallery.html>Gallery</a>
<a href="about.html">dup</a>
<a href="https://example.com">ext</a>
<a href="mailto:me@example.com">mail</a>
<a href="/root.html">abs</a>
<a href="#top">top</a>
<link href="style.css" rel="stylesheet">`
	r := Parse("index.html", []byte(body))
	want := []string{"about.html", "contact.html", "gallery.html"}
	if !reflect.DeepEqual(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
}

func TestParse_NonHTMLHasNoLinks(t *testing.T) {
	r := Parse("app.js", []byte(`el.innerHTML = '<a href="x.html">x</a>'`))
	if r.Kind != KindJS {
		t.Errorf("kind = %q", r.Kind)
	}
	if len(r.Links) != 0 || r.Title != "" {
		t.Errorf("unexpected links/title: %+v", r)
	}
	if r.Body == "" {
		t.Error("body should be kept for search")
	}
}
