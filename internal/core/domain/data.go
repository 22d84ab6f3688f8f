package domain

import (
	"bytes"
	"fmt"
	"maps"
	"time"
)

// DataReference identifies one harvested record and carries its payload.
// It is immutable: constructors copy their inputs and accessors return copies,
// so every destination in a task reads the same value.
type DataReference struct {
	id             string
	sourceURI      string
	content        []byte
	contentType    string
	lastModified   time.Time
	sourceBrokerID string
	attributes     map[string]string
}

// DataReferenceOption customises a DataReference at construction.
type DataReferenceOption func(*DataReference)

// WithContent sets the payload and its MIME type.
func WithContent(content []byte, contentType string) DataReferenceOption {
	return func(r *DataReference) {
		if content != nil {
			r.content = bytes.Clone(content)
		}
		r.contentType = contentType
	}
}

// WithLastModified sets the record's last modification time.
func WithLastModified(t time.Time) DataReferenceOption {
	return func(r *DataReference) {
		r.lastModified = t
	}
}

// WithAttributes attaches connector-specific metadata.
func WithAttributes(attrs map[string]string) DataReferenceOption {
	return func(r *DataReference) {
		r.attributes = maps.Clone(attrs)
	}
}

// NewDataReference creates a reference for a record produced by sourceBrokerID.
func NewDataReference(id, sourceURI, sourceBrokerID string, opts ...DataReferenceOption) DataReference {
	r := DataReference{
		id:             id,
		sourceURI:      sourceURI,
		sourceBrokerID: sourceBrokerID,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// ID returns the record identifier within its source.
func (r DataReference) ID() string { return r.id }

// SourceURI returns the original location of the record.
func (r DataReference) SourceURI() string { return r.sourceURI }

// Content returns a copy of the payload, or nil when the record carries none.
func (r DataReference) Content() []byte { return bytes.Clone(r.content) }

// HasContent reports whether a payload is attached.
func (r DataReference) HasContent() bool { return r.content != nil }

// ContentType returns the payload MIME type.
func (r DataReference) ContentType() string { return r.contentType }

// LastModified returns the record's modification time (zero if unknown).
func (r DataReference) LastModified() time.Time { return r.lastModified }

// SourceBrokerID returns the identity of the broker that produced the record.
func (r DataReference) SourceBrokerID() string { return r.sourceBrokerID }

// Attribute returns a metadata value.
func (r DataReference) Attribute(key string) (string, bool) {
	v, ok := r.attributes[key]
	return v, ok
}

// Attributes returns a copy of all metadata.
func (r DataReference) Attributes() map[string]string { return maps.Clone(r.attributes) }

// String returns a short description for logs.
func (r DataReference) String() string {
	return fmt.Sprintf("DATA REFERENCE :: id: %s, uri: %s, broker: %s", r.id, r.sourceURI, r.sourceBrokerID)
}
