package kb

import (
	"encoding/json"
	"net/http"
)

type latestResponse struct {
	Stats  Stats `json:"stats"`
	Result any   `json:"result"`
}

// LatestHandler serves the latest result as JSON. It answers 204 until the
// first result is published.
func (kb *KnowledgeBase) LatestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		latest, ok := kb.Latest()
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(latestResponse{Stats: kb.Stats(), Result: latest})
	})
}
