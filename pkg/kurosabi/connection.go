package kurosabi

import "bufio"

// core holds the state every typestate wrapper shares: the user context
// value, the parsed Request, and the in-progress response. It is never
// exposed directly — each lifecycle stage wraps it in a distinct named
// type with its own method set, per the Design Note on typestate
// encoding in a language without phantom type parameters.
type core[C any] struct {
	ctx C
	req *Request
	res *response
}

// NoneBodyConn is the entry state of a Connection: a parsed Request is
// available, no status code has been explicitly set, and no body form
// has been chosen yet. It may set the status code, add or remove
// headers, or choose a body — each body-choosing operation first
// applies the default 200 OK status if none was set.
type NoneBodyConn[C any] struct{ c core[C] }

// StatusSetNoneBodyConn is reached after an explicit SetStatusCode
// call. It exposes the same header and body operations as
// NoneBodyConn; the only observable difference is that a status code
// has already been recorded.
type StatusSetNoneBodyConn[C any] struct{ c core[C] }

// ChunkedResponseConn is reached via ReadyChunked. It exposes only
// SendChunk, SendLastChunk and CloseChunked — there is no method to add a header or
// change the status code once chunked streaming has begun, matching
// the header-before-body rule by construction.
type ChunkedResponseConn[C any] struct{ c core[C] }

// ResponseReadyConn holds a response that is either fully buffered
// (bounded body) or has already been written to the wire (streaming,
// chunked). Flush is callable exactly once; Cancel discards instead.
type ResponseReadyConn[C any] struct{ c core[C] }

// NewConnection wraps a parsed Request and a fresh response targeting w
// with user context ctx, ready for the handler to drive through the
// typestate graph.
func NewConnection[C any](ctx C, req *Request, w *bufio.Writer) NoneBodyConn[C] {
	return NoneBodyConn[C]{c: core[C]{ctx: ctx, req: req, res: newResponse(w)}}
}

// Context returns the user-supplied context value.
func (n NoneBodyConn[C]) Context() C { return n.c.ctx }

// Context returns the user-supplied context value.
func (s StatusSetNoneBodyConn[C]) Context() C { return s.c.ctx }

// Context returns the user-supplied context value.
func (r ResponseReadyConn[C]) Context() C { return r.c.ctx }

// Request exposes the parsed request for inspection by the handler.
func (n NoneBodyConn[C]) Request() *Request { return n.c.req }

// Request exposes the parsed request for inspection by the handler.
func (s StatusSetNoneBodyConn[C]) Request() *Request { return s.c.req }

// SetStatusCode records the response status and transitions to
// StatusSetNoneBodyConn.
func (n NoneBodyConn[C]) SetStatusCode(code StatusCode) StatusSetNoneBodyConn[C] {
	n.c.res.status = code
	return StatusSetNoneBodyConn[C]{c: n.c}
}

// SetStatusCode re-records the response status. Calling it more than
// once is legal; the last call before a body operation wins.
func (s StatusSetNoneBodyConn[C]) SetStatusCode(code StatusCode) StatusSetNoneBodyConn[C] {
	s.c.res.status = code
	return s
}

// AddHeader appends a header. Legal only before a body form has been
// chosen — there is no AddHeader method on ChunkedResponseConn or
// ResponseReadyConn, so calling it after the body has begun is a
// compile error, not a runtime check.
func (n NoneBodyConn[C]) AddHeader(key, value string) NoneBodyConn[C] {
	n.c.res.hdrs.Insert(n.c.res.buf, key, value)
	return n
}

// AddHeader appends a header.
func (s StatusSetNoneBodyConn[C]) AddHeader(key, value string) StatusSetNoneBodyConn[C] {
	s.c.res.hdrs.Insert(s.c.res.buf, key, value)
	return s
}

// RemoveHeader deletes every header matching key (case-insensitive).
func (n NoneBodyConn[C]) RemoveHeader(key string) NoneBodyConn[C] {
	n.c.res.hdrs.Remove(n.c.res.buf, key)
	return n
}

// RemoveHeader deletes every header matching key (case-insensitive).
func (s StatusSetNoneBodyConn[C]) RemoveHeader(key string) StatusSetNoneBodyConn[C] {
	s.c.res.hdrs.Remove(s.c.res.buf, key)
	return s
}

// Cancel discards the in-progress response and returns a fresh
// NoneBodyConn sharing the same request and context, resetting the
// response buffer, headers, and status.
func (r ResponseReadyConn[C]) Cancel() NoneBodyConn[C] {
	r.c.res.resetForReuse(r.c.res.w)
	return NoneBodyConn[C]{c: r.c}
}

// Flush writes the response to the wire exactly once. For a bounded
// body the entire status-line+headers+body buffer is written now; for
// a streamed or chunked body the bytes already reached the wire and
// Flush only drains the writer and resets internal state for the next
// keep-alive iteration. It returns the next NoneBodyConn ready to parse
// the next request.
//
// On an I/O error, the Connection is not discarded: it is wrapped in an
// ErrorPair so the caller (normally the routing loop) can still log or
// inspect it before the connection is dropped.
func (r ResponseReadyConn[C]) Flush() (NoneBodyConn[C], *ErrorPair[core[C]]) {
	res := r.c.res
	if !res.flushed {
		res.writeStatusLine()
		if _, err := res.w.Write(res.buf.Bytes()); err != nil {
			return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: err, Connection: r.c}
		}
	}
	if err := res.w.Flush(); err != nil {
		return NoneBodyConn[C]{}, &ErrorPair[core[C]]{Err: err, Connection: r.c}
	}
	res.resetForReuse(res.w)
	return NoneBodyConn[C]{c: r.c}, nil
}

// PathSegments iterates the request path's segments; see the package
// level PathSegments for semantics.
func (n NoneBodyConn[C]) PathSegments() [][]byte { return PathSegments(n.c.req.Path()) }
