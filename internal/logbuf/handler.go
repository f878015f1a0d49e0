package logbuf

import (
	"context"
	"log/slog"
)

// Handler tees slog records into a Buffer while delegating to an inner
// handler for normal output.
type Handler struct {
	inner  slog.Handler
	buf    *Buffer
	attrs  []slog.Attr
	prefix string // dotted group path from WithGroup
}

// NewHandler creates a handler that writes to both buf and inner.
func NewHandler(inner slog.Handler, buf *Buffer) *Handler {
	return &Handler{inner: inner, buf: buf}
}

// Enabled always reports true so the buffer captures every level even
// when the inner handler filters.
func (h *Handler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	attrs := make(map[string]any)
	for _, a := range h.attrs {
		attrs[h.prefix+a.Key] = flatten(a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = flatten(a.Value)
		return true
	})
	if len(attrs) == 0 {
		attrs = nil
	}

	h.buf.Write(Entry{
		Time:    r.Time,
		Level:   r.Level.String(),
		Message: r.Message,
		Attrs:   attrs,
	})

	// The inner handler keeps its own level filter.
	if h.inner.Enabled(ctx, r.Level) {
		return h.inner.Handle(ctx, r)
	}
	return nil
}

// flatten resolves slog values into JSON-safe types. Errors become their
// string form so they don't marshal to {}.
func flatten(v slog.Value) any {
	v = v.Resolve()
	raw := v.Any()
	if err, ok := raw.(error); ok {
		return err.Error()
	}
	return raw
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		inner:  h.inner.WithAttrs(attrs),
		buf:    h.buf,
		attrs:  append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		prefix: h.prefix,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:  h.inner.WithGroup(name),
		buf:    h.buf,
		attrs:  h.attrs,
		prefix: h.prefix + name + ".",
	}
}
