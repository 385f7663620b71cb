// Package message implements the Message record and the promise/sequence
// types that stream messages between agents, built atop frozen and
// promising.
package message

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voocel/miniagents/frozen"
)

// Field is a single named value to attach to a Message, used as a
// functional-option-style argument to message constructors.
type Field struct {
	Name  string
	Value any
}

// F builds a Field.
func F(name string, value any) Field {
	return Field{Name: name, Value: value}
}

// Message is a frozen record intended as the unit exchanged between agents.
// It carries the two reserved fields the rendering rule looks at —
// Content/ContentTemplate — plus whatever else the caller attached.
type Message struct {
	rec    *frozen.Record
	strict bool
}

// New builds a Message whose record carries class as its class tag. strict
// is recorded on the message and reported by Strict; New itself does not
// check the given fields against any schema in either mode, since
// frozen.Record has no schema concept.
func New(class string, strict bool, fields ...Field) (*Message, error) {
	fm := make(map[string]any, len(fields))
	for _, f := range fields {
		fm[f.Name] = f.Value
	}
	rec, err := frozen.New(class, fm)
	if err != nil {
		return nil, fmt.Errorf("message: %w", err)
	}
	return &Message{rec: rec, strict: strict}, nil
}

// TextMessage builds an open message whose positional content argument is
// stored under the reserved "content" field.
func TextMessage(content string, fields ...Field) *Message {
	all := append([]Field{F("content", content)}, fields...)
	m, err := New("Message", false, all...)
	if err != nil {
		// content is always a plain string and extra fields are caller-
		// controlled; a conversion failure here means the caller passed an
		// unsupported field value, which is a programmer error for this
		// convenience constructor.
		panic(err)
	}
	return m
}

// Record returns the message's underlying frozen record.
func (m *Message) Record() *frozen.Record { return m.rec }

// Strict reports the strict flag the message was built with.
func (m *Message) Strict() bool { return m.strict }

// Content returns the message's "content" field, if present.
func (m *Message) Content() (string, bool) {
	v, ok := m.rec.Get("content")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ContentTemplate returns the message's "content_template" field, if present.
func (m *Message) ContentTemplate() (string, bool) {
	v, ok := m.rec.Get("content_template")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// HashKey returns the message's content hash, delegating to the underlying
// record.
func (m *Message) HashKey(long bool) string {
	return m.rec.HashKey(long)
}

// Render implements the rendering rule: if content_template is set, it is
// formatted against the record's other fields; else if content is set, it
// is returned verbatim; else a fenced JSON dump of the record is returned.
func (m *Message) Render() string {
	if tmpl, ok := m.ContentTemplate(); ok {
		return renderTemplate(tmpl, m.rec)
	}
	if content, ok := m.Content(); ok {
		return content
	}
	return fencedJSON(m.rec)
}

// renderTemplate expands {field} placeholders in tmpl against rec's fields.
func renderTemplate(tmpl string, rec *frozen.Record) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		if tmpl[i] == '{' {
			if end := strings.IndexByte(tmpl[i:], '}'); end >= 0 {
				field := tmpl[i+1 : i+end]
				if v, ok := rec.Get(field); ok {
					fmt.Fprintf(&b, "%v", v)
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(tmpl[i])
		i++
	}
	return b.String()
}

// fencedJSON renders rec as a markdown-fenced JSON block, the last-resort
// rendering used when a message has neither content nor content_template.
func fencedJSON(rec *frozen.Record) string {
	raw, err := json.MarshalIndent(rec.Serialize(), "", "  ")
	if err != nil {
		return "```\n<unserializable message>\n```"
	}
	return "```json\n" + string(raw) + "\n```"
}

// SubMessages returns the records of class "Message" nested inline (directly
// or transitively) inside this one's fields, in depth-first order, mirroring
// the original's sub_messages() traversal. Fields holding frozen.ExternalRef
// references (such as AsSingleTextPromise's "originals") are not followed.
func (m *Message) SubMessages() []*Message {
	var out []*Message
	var walk func(*frozen.Record)
	walk = func(rec *frozen.Record) {
		for _, name := range rec.Fields() {
			v, _ := rec.Get(name)
			walkValue(v, &out, walk)
		}
	}
	walk(m.rec)
	return out
}

func walkValue(v any, out *[]*Message, walk func(*frozen.Record)) {
	switch tv := v.(type) {
	case *frozen.Record:
		if tv.Class() == "Message" {
			*out = append(*out, &Message{rec: tv})
		}
		walk(tv)
	case []any:
		for _, item := range tv {
			walkValue(item, out, walk)
		}
	}
}
