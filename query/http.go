package query

import (
	"context"
	"io"
	"log"
	"net/http"
)

// HTTPHandler exposes Server over its HTTP surface: POST /v1/query for
// read-only state queries, POST /v1/tx for a mempool gate-check. Both
// endpoints accept the binary signed envelope verbatim as the request
// body and return the binary signed response envelope verbatim, so an
// HTTP client speaks the identical wire format a consensus-engine-
// attached client would.
func (s *Server) HTTPHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/query", s.serveEnvelope(s.HandleQuery))
	mux.HandleFunc("/v1/tx", s.serveEnvelope(s.HandleTx))
	return mux
}

func (s *Server) serveEnvelope(handle func(context.Context, []byte) ([]byte, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		resp, err := handle(r.Context(), body)
		if err != nil {
			log.Printf("github.com/blockberries/tokenchain/query: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(resp)
	}
}

// maxEnvelopeBytes bounds a single envelope submission; well above
// anything a legitimate request or multisig inner-request payload
// needs.
const maxEnvelopeBytes = 1 << 20
