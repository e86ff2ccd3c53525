package clients

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

// rpcServer is a JSON-RPC 2.0 mock. Methods without a configured result
// answer null.
type rpcServer struct {
	*httptest.Server

	mu      sync.Mutex
	results map[string]any
	calls   []rpcCall
}

func newRPCServer(t *testing.T, results map[string]any) *rpcServer {
	t.Helper()

	s := &rpcServer{results: results}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		s.mu.Lock()
		s.calls = append(s.calls, rpcCall{Method: req.Method, Params: req.Params})
		result := s.results[req.Method]
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *rpcServer) methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		out = append(out, c.Method)
	}
	return out
}
