package executor

// Transaction buffers mutations issued inside BEGIN...COMMIT/ROLLBACK.
// Per the resolved transaction semantics, a write transaction accumulates
// mutationOps in memory; they are only applied to the heaps and made
// durable in the WAL on COMMIT, and are discarded with no trace at all on
// ROLLBACK.
type Transaction struct {
	Active bool
	Ops    []mutationOp
}

// Session is one client connection's state: its selected database and
// any in-flight explicit transaction. A fresh auto-commit statement uses
// a single-operation buffer that always commits immediately.
type Session struct {
	Engine          *Engine
	CurrentDatabase string
	Txn             *Transaction
}

// NewSession creates a session with no selected database and no active
// transaction.
func NewSession(engine *Engine) *Session {
	return &Session{Engine: engine}
}

// stage routes a batch of mutations to the active transaction's buffer,
// or applies them immediately when running auto-commit. The auto-commit
// path passes txnCommit=true so the WAL manager force-flushes and fsyncs
// the batch before returning: an auto-commit statement has no later
// COMMIT to do that for it, and must be durable the moment it succeeds.
func (s *Session) stage(ops []mutationOp) error {
	if s.Txn != nil && s.Txn.Active {
		s.Txn.Ops = append(s.Txn.Ops, ops...)
		return nil
	}
	return s.Engine.applyOps(ops, true)
}
