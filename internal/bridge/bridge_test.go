package bridge

import (
	"strings"
	"testing"
)

func TestDecodeAccepts(t *testing.T) {
	in, ok := Decode([]byte(`{"type":"navigate","file":"b.html"}`))
	if !ok {
		t.Fatal("valid intent rejected")
	}
	if in != (Intent{Type: TypeNavigate, File: "b.html"}) {
		t.Errorf("intent = %+v", in)
	}
}

func TestDecodeKeepsRawHref(t *testing.T) {
	in, ok := Decode([]byte(`{"type":"navigate","file":"./pages/b.html#top"}`))
	if !ok || in.File != "./pages/b.html#top" {
		t.Errorf("intent = %+v ok=%v", in, ok)
	}
}

func TestDecodeAcceptsAnyKeyOrder(t *testing.T) {
	in, ok := Decode([]byte(` {"file":"b.html", "type":"navigate"} `))
	if !ok || in.File != "b.html" {
		t.Errorf("intent = %+v ok=%v", in, ok)
	}
}

func TestDecodeRejects(t *testing.T) {
	cases := map[string]string{
		"other type":    `{"type":"reload","file":"b.html"}`,
		"empty file":    `{"type":"navigate","file":""}`,
		"missing file":  `{"type":"navigate"}`,
		"extra field":   `{"type":"navigate","file":"b.html","x":1}`,
		"wrong type":    `{"type":"navigate","file":3}`,
		"not an object": `"navigate"`,
		"null":          `null`,
		"garbage":       `{`,
		"two values":    `{"type":"navigate","file":"a"} {}`,
		"upper keys":    `{"TYPE":"navigate","FILE":"b.html"}`,
		"mixed case":    `{"Type":"navigate","file":"b.html"}`,
		"repeated key":  `{"type":"navigate","file":"a.html","file":"b.html"}`,
		"repeated type": `{"type":"reload","type":"navigate","file":"b.html"}`,
		"null file":     `{"type":"navigate","file":null}`,
		"array":         `[{"type":"navigate","file":"b.html"}]`,
	}
	for name, raw := range cases {
		if _, ok := Decode([]byte(raw)); ok {
			t.Errorf("%s: accepted %s", name, raw)
		}
	}
}

func TestMailboxDeliversOnce(t *testing.T) {
	var got []Intent
	m := NewMailbox(func(in Intent) { got = append(got, in) })

	if !m.Deliver([]byte(`{"type":"navigate","file":"b.html"}`)) {
		t.Fatal("Deliver rejected a valid message")
	}
	if m.Deliver([]byte(`{"type":"resize","height":10}`)) {
		t.Error("Deliver accepted an unknown shape")
	}
	if len(got) != 1 || got[0].File != "b.html" {
		t.Errorf("handler calls = %+v, want exactly one b.html", got)
	}
	if m.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", m.Dropped())
	}
}

func TestScriptEmbedded(t *testing.T) {
	for _, want := range []string{"addEventListener('click', onClick, true)", "postMessage", "'navigate'", "pagehide"} {
		if !strings.Contains(Script, want) {
			t.Errorf("bootstrap script missing %q", want)
		}
	}
}

func TestScriptReinstallsOnPageShow(t *testing.T) {
	if strings.Contains(Script, "once: true") {
		t.Error("pagehide teardown must not be one-shot")
	}
	for _, want := range []string{"'pageshow'", "event.persisted", "install()"} {
		if !strings.Contains(Script, want) {
			t.Errorf("bootstrap script missing %q", want)
		}
	}
}
