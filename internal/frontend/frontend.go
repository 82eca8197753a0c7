// Package frontend adapts the executor's synchronous Process call into
// the connection-facing Prepare/Fetch contract a wire frontend would
// drive. Every session's statements are serialized through a single FIFO
// request channel, matching the teacher's one-DBEngine-instance model
// generalized to a channel actor: only one statement executes against
// the engine at a time, in submission order, regardless of how many
// goroutines call Prepare concurrently.
package frontend

import (
	"context"

	"github.com/google/uuid"

	"goreldb/internal/errs"
	"goreldb/internal/executor"
	"goreldb/internal/log"
	"goreldb/internal/sql"
)

var logger = log.WithComponent("frontend")

type request struct {
	src   string
	reply chan response
}

type response struct {
	result executor.ExecuteResult
	err    error
}

// Engine serializes statement execution for one session onto a single
// background goroutine, draining a bounded request channel FIFO.
type Engine struct {
	session *executor.Session
	reqs    chan request
	done    chan struct{}
}

// NewEngine starts the background executor goroutine bound to session.
// queueDepth bounds how many prepared-but-unexecuted statements may be
// in flight before Prepare blocks; callers typically use a small depth
// (e.g. 16) since each REPL/wire connection prepares one statement at a
// time in practice.
func NewEngine(session *executor.Session, queueDepth int) *Engine {
	if queueDepth <= 0 {
		queueDepth = 1
	}
	e := &Engine{
		session: session,
		reqs:    make(chan request, queueDepth),
		done:    make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.done)
	for req := range e.reqs {
		stmt, err := sql.Parse(req.src)
		if err != nil {
			req.reply <- response{err: err}
			continue
		}
		res, err := e.session.Process(context.Background(), stmt)
		req.reply <- response{result: res, err: err}
	}
}

// Close stops accepting new statements. Any Prepare call racing with
// Close may return a "frontend closed" error instead of enqueuing.
func (e *Engine) Close() {
	close(e.reqs)
	<-e.done
}

// Portal is the in-process stand-in for a wire-protocol portal: a
// prepared statement's buffered result set plus a fetch cursor, fetched
// from the caller's side in batches of rows.
type Portal struct {
	id     string
	rows   []sql.Row
	cols   []executor.ColumnInfo
	cursor int
}

// Columns reports the result set's column descriptors.
func (p *Portal) Columns() []executor.ColumnInfo { return p.cols }

// ID is the portal's correlation id, suitable for tracing a prepared
// statement across log lines independent of the WAL's own durable
// txn_id ordering key.
func (p *Portal) ID() string { return p.id }

// Prepare submits src to the FIFO executor goroutine and waits for it to
// parse and run, returning a Portal over its result set. A cancelled
// context drops the request without waiting for a reply; the statement
// may still execute once dequeued, and the result is then discarded.
func (e *Engine) Prepare(ctx context.Context, src string) (*Portal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := make(chan response, 1)
	select {
	case e.reqs <- request{src: src, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.done:
		return nil, errs.NewExecuteError("frontend is closed", nil)
	}

	id := uuid.NewString()
	select {
	case res := <-reply:
		if res.err != nil {
			logger.Debug().Str("portal_id", id).Err(res.err).Msg("statement failed")
			return nil, res.err
		}
		logger.Debug().Str("portal_id", id).Int("rows", len(res.result.Rows)).Msg("statement prepared")
		return &Portal{id: id, rows: res.result.Rows, cols: res.result.Columns}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch returns up to batch rows starting at the portal's cursor,
// advancing it, and reports whether more rows remain. batch <= 0 fetches
// every remaining row in one call.
func (p *Portal) Fetch(ctx context.Context, batch int) ([]sql.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if p.cursor >= len(p.rows) {
		return nil, false, nil
	}
	end := len(p.rows)
	if batch > 0 && p.cursor+batch < end {
		end = p.cursor + batch
	}
	out := p.rows[p.cursor:end]
	p.cursor = end
	return out, p.cursor < len(p.rows), nil
}
