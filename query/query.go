// Package query implements tokenchain's client-facing envelope
// gateway: synchronous verify→dispatch→respond for both read-only
// state queries and mempool gate-checks, answering the same signed
// envelope format the consensus bridge exchanges with modules, over
// the single in-process bridge.Connection this process holds.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/blockberries/tokenchain/address"
	"github.com/blockberries/tokenchain/bridge"
	"github.com/blockberries/tokenchain/bridge/types"
	"github.com/blockberries/tokenchain/codec"
	"github.com/blockberries/tokenchain/codeerr"
	"github.com/blockberries/tokenchain/envelope"
)

// Server answers envelope-in/envelope-out requests against a bridge
// connection: /v1/query routes to Connection.Query, /v1/tx routes to
// Connection.CheckTx. Neither path drives DeliverTx/Commit; block
// execution is the external consensus engine's job.
type Server struct {
	conn   bridge.Connection
	signer envelope.Signer
}

// Option configures a Server.
type Option func(*Server)

// WithSigner has the server sign its response envelopes with signer's
// identity, rather than leaving them anonymous.
func WithSigner(signer envelope.Signer) Option {
	return func(s *Server) { s.signer = signer }
}

// NewServer builds a Server answering queries and check-tx gate-checks
// against conn.
func NewServer(conn bridge.Connection, opts ...Option) *Server {
	s := &Server{conn: conn}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleQuery decodes envBytes as a request envelope, routes it to the
// bridge's Query method, and returns an encoded response envelope.
// Anonymous envelopes are accepted; they are permitted on read
// endpoints.
func (s *Server) HandleQuery(ctx context.Context, envBytes []byte) ([]byte, error) {
	req, from, err := s.decodeRequest(envBytes)
	if err != nil {
		return s.errorResponse(address.Anonymous, err)
	}

	result, err := s.conn.Query(ctx, types.StateQuery{
		Path: types.QueryPath(req.Endpoint),
		Data: req.Payload,
	})
	if err != nil {
		return s.errorResponse(from, err)
	}
	if result.Code != 0 {
		return s.errorResponse(from, codeerr.New(int32(result.Code), result.Info))
	}
	return s.successResponse(from, result.Value)
}

// HandleTx decodes envBytes as a request envelope and gate-checks it
// through the bridge's CheckTx, the same admission test the mempool
// runs before a transaction is handed to the consensus engine. It does
// not deliver or commit the transaction.
func (s *Server) HandleTx(ctx context.Context, envBytes []byte) ([]byte, error) {
	_, from, err := s.decodeRequest(envBytes)
	if err != nil {
		return s.errorResponse(address.Anonymous, err)
	}

	result, err := s.conn.CheckTx(ctx, types.Tx(envBytes), types.MempoolFirstSeen)
	if err != nil {
		return s.errorResponse(from, err)
	}
	if !result.Accepted() {
		return s.errorResponse(from, codeerr.New(int32(result.Code), result.Info))
	}
	return s.successResponse(from, nil)
}

func (s *Server) decodeRequest(envBytes []byte) (envelope.Request, address.Address, error) {
	var env envelope.SignedEnvelope
	if err := codec.Unmarshal(envBytes, &env); err != nil {
		return envelope.Request{}, address.Anonymous, codeerr.DecodeError(err.Error())
	}
	req, err := env.DecodeRequest()
	if err != nil {
		return envelope.Request{}, address.Anonymous, codeerr.DecodeError(err.Error())
	}
	return req, req.From, nil
}

func (s *Server) successResponse(to address.Address, payload []byte) ([]byte, error) {
	return s.buildResponse(to, envelope.Result{Payload: payload})
}

func (s *Server) errorResponse(to address.Address, err error) ([]byte, error) {
	if ce, ok := err.(*codeerr.Error); ok {
		return s.buildResponse(to, envelope.Result{
			Code:     ce.Code,
			Template: ce.Template,
			Args:     ce.Args,
		})
	}
	return s.buildResponse(to, envelope.Result{Code: 1, Template: err.Error()})
}

func (s *Server) buildResponse(to address.Address, result envelope.Result) ([]byte, error) {
	from := address.Anonymous
	if s.signer != nil {
		from = s.signer.Address()
	}
	resp := envelope.Response{
		From:      from,
		To:        to,
		Result:    result,
		Timestamp: time.Now().Unix(),
	}
	payload, err := codec.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("query: encode response: %w", err)
	}
	env := envelope.SignedEnvelope{Payload: payload}
	if s.signer != nil {
		env, err = envelope.Sign(env, s.signer)
		if err != nil {
			return nil, fmt.Errorf("query: sign response: %w", err)
		}
	}
	return codec.Marshal(env)
}
