package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	retrievaluc "github.com/Wafflelover404/GraphTalk-SC-sub001/internal/usecase/retrieval"
)

// --- Mocks ---

type mockSearcher struct {
	result  retrievaluc.Result
	err     error
	lastReq retrievaluc.Request
}

func (m *mockSearcher) Search(_ context.Context, req retrievaluc.Request) (retrievaluc.Result, error) {
	m.lastReq = req
	return m.result, m.err
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockHealth struct{ err error }

func (m *mockHealth) HealthCheck(_ context.Context) error { return m.err }

func newTestRouter(searcher *mockSearcher, store *mockPinger, embedder *mockHealth) http.Handler {
	r := chirouter.NewRouter()
	var hc HealthChecker
	if embedder != nil {
		hc = embedder
	}
	NewServer(searcher, store, hc, zap.NewNop()).Routes(r)
	return r
}

func postSearch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// --- Tests ---

func TestHandleSearch_OK(t *testing.T) {
	chunk := domain.NewCandidate("c1", "policies.md", "refund text", nil)
	chunk.SetCombinedScore(0.61)
	searcher := &mockSearcher{result: retrievaluc.Result{
		Files: []domain.FileResult{
			domain.NewFileResult("policies.md", []domain.Candidate{chunk}, 0.61, 0.61),
		},
	}}
	handler := newTestRouter(searcher, &mockPinger{}, nil)

	rr := postSearch(t, handler, `{"query":"refund policy","user_id":"u1","k":5,"search_type":"hybrid","min_score":0.1}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body %s", rr.Code, rr.Body.String())
	}

	if searcher.lastReq.Query != "refund policy" || searcher.lastReq.UserID != "u1" ||
		searcher.lastReq.K != 5 || searcher.lastReq.MinScore != 0.1 {
		t.Errorf("request not forwarded: %+v", searcher.lastReq)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Files) != 1 || resp.Files[0].FileName != "policies.md" {
		t.Fatalf("files: %+v", resp.Files)
	}
	if resp.Files[0].Score != 0.61 {
		t.Errorf("score: got %v, want 0.61", resp.Files[0].Score)
	}
	if len(resp.Files[0].Chunks) != 1 || resp.Files[0].Chunks[0].Text != "refund text" {
		t.Errorf("chunks: %+v", resp.Files[0].Chunks)
	}
}

func TestHandleSearch_BadBody(t *testing.T) {
	handler := newTestRouter(&mockSearcher{}, &mockPinger{}, nil)

	rr := postSearch(t, handler, `{not json`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_InvalidQuery_400(t *testing.T) {
	searcher := &mockSearcher{err: domain.ErrInvalidQuery}
	handler := newTestRouter(searcher, &mockPinger{}, nil)

	rr := postSearch(t, handler, `{"query":"","user_id":"u1"}`)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_NoAccessibleResults_200WithCode(t *testing.T) {
	searcher := &mockSearcher{err: domain.ErrNoAccessibleResults}
	handler := newTestRouter(searcher, &mockPinger{}, nil)

	rr := postSearch(t, handler, `{"query":"secret","user_id":"u1"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200 (authorization emptiness is not a transport failure)", rr.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Code != codeNoAuthorizedResults {
		t.Errorf("code: got %q, want %q", resp.Code, codeNoAuthorizedResults)
	}
	if len(resp.Files) != 0 {
		t.Errorf("files must be empty, got %d", len(resp.Files))
	}
}

func TestHandleSearch_SentinelStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{domain.ErrRetrievalFailed, http.StatusBadGateway, codeRetrievalFailed},
		{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable},
		{domain.ErrEmbeddingFailure, http.StatusBadGateway, codeEmbeddingFailure},
		{errors.New("unexpected"), http.StatusInternalServerError, codeInternalError},
	}

	for _, c := range cases {
		searcher := &mockSearcher{err: c.err}
		handler := newTestRouter(searcher, &mockPinger{}, nil)

		rr := postSearch(t, handler, `{"query":"q","user_id":"u1"}`)

		if rr.Code != c.wantStatus {
			t.Errorf("%v: got %d, want %d", c.err, rr.Code, c.wantStatus)
		}
		var errResp errorResponse
		if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if errResp.Code != c.wantCode {
			t.Errorf("%v: code got %q, want %q", c.err, errResp.Code, c.wantCode)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	cases := []struct {
		name       string
		storeErr   error
		embErr     error
		wantStatus int
	}{
		{"all healthy", nil, nil, http.StatusOK},
		{"store down", errors.New("down"), nil, http.StatusServiceUnavailable},
		{"embedder down", nil, errors.New("down"), http.StatusServiceUnavailable},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			handler := newTestRouter(&mockSearcher{}, &mockPinger{err: c.storeErr}, &mockHealth{err: c.embErr})

			req := httptest.NewRequest("GET", "/healthz", http.NoBody)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != c.wantStatus {
				t.Errorf("got %d, want %d", rr.Code, c.wantStatus)
			}
		})
	}
}
