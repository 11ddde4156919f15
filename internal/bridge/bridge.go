// Package bridge relays navigation intents from a rendered preview document
// back to the editor host.
//
// The preview side is the embedded bootstrap script: it intercepts anchor
// clicks and posts {"type":"navigate","file":<href>} to the parent window.
// The host side decodes those messages, rejects every other shape, and hands
// each accepted intent to a single handler.
package bridge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Script is the bootstrap injected at the top of every preview document.
//
//go:embed bootstrap.js
var Script string

// TypeNavigate is the only recognised message type.
const TypeNavigate = "navigate"

// Intent asks the host to make File the active file.
type Intent struct {
	Type string `json:"type"`
	File string `json:"file"`
}

// Validate checks the intent shape.
func (i Intent) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Type, validation.Required, validation.In(TypeNavigate)),
		validation.Field(&i.File, validation.Required),
	)
}

// Decode parses a raw preview message. Anything other than exactly
// {"type":"navigate","file":"<non-empty>"} is reported as not ok. Keys are
// matched case-sensitively and may appear only once.
func Decode(raw []byte) (Intent, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return Intent{}, false
	}

	var in Intent
	seen := make(map[string]bool, 2)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Intent{}, false
		}
		key, _ := tok.(string)
		if seen[key] {
			return Intent{}, false
		}
		seen[key] = true

		var dst *string
		switch key {
		case "type":
			dst = &in.Type
		case "file":
			dst = &in.File
		default:
			return Intent{}, false
		}
		if err := dec.Decode(dst); err != nil {
			return Intent{}, false
		}
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return Intent{}, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Intent{}, false
	}
	if in.Validate() != nil {
		return Intent{}, false
	}
	return in, true
}

// Mailbox is the host end of the preview channel. Each accepted message is
// delivered to the handler exactly once; rejected messages are counted.
type Mailbox struct {
	handler func(Intent)
	dropped atomic.Int64
}

// NewMailbox returns a mailbox delivering to handler.
func NewMailbox(handler func(Intent)) *Mailbox {
	return &Mailbox{handler: handler}
}

// Deliver decodes raw and relays it. It reports whether the message was accepted.
func (m *Mailbox) Deliver(raw []byte) bool {
	in, ok := Decode(raw)
	if !ok {
		m.dropped.Add(1)
		return false
	}
	m.handler(in)
	return true
}

// Dropped returns the number of rejected messages.
func (m *Mailbox) Dropped() int64 {
	return m.dropped.Load()
}
