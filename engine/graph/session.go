package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CypherResult is the minimal interface GraphStore needs from a running
// Cypher result cursor. It mirrors neo4j.ResultWithContext's Next/Record
// pair so tests can substitute an in-memory fake without a live database.
type CypherResult interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// CypherRunner is the minimal interface for running a statement, whether
// directly against a session or inside a managed transaction.
type CypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error)
}

// CypherSession is a CypherRunner plus session lifecycle and managed-write
// support.
type CypherSession interface {
	CypherRunner
	Close(ctx context.Context) error
	ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error)
}

// sessionOpener opens a new CypherSession. GraphStore depends on this
// interface rather than a concrete driver so it can be unit tested with a
// fake opener.
type sessionOpener interface {
	OpenSession(ctx context.Context) CypherSession
}

// realOpener adapts a neo4j.DriverWithContext to sessionOpener.
type realOpener struct {
	driver neo4j.DriverWithContext
}

func (o *realOpener) OpenSession(ctx context.Context) CypherSession {
	return &realSession{sess: o.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// realSession adapts neo4j.SessionWithContext to CypherSession.
type realSession struct {
	sess neo4j.SessionWithContext
}

func (s *realSession) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return s.sess.Run(ctx, cypher, params)
}

func (s *realSession) Close(ctx context.Context) error {
	return s.sess.Close(ctx)
}

func (s *realSession) ExecuteWrite(ctx context.Context, work func(tx CypherRunner) (any, error)) (any, error) {
	return s.sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return work(&realTx{tx: tx})
	})
}

// realTx adapts neo4j.ManagedTransaction to CypherRunner.
type realTx struct {
	tx neo4j.ManagedTransaction
}

func (t *realTx) Run(ctx context.Context, cypher string, params map[string]any) (CypherResult, error) {
	return t.tx.Run(ctx, cypher, params)
}
