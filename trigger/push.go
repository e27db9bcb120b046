package trigger

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bggsnap/bggsnap/log"
	"github.com/bggsnap/bggsnap/types"
)

// TokenHeader carries the shared webhook secret.
const TokenHeader = "X-Bggsnap-Token"

// pushPayload is the accepted webhook body.
type pushPayload struct {
	Ref string `json:"ref"`
}

// PushHandler accepts push webhooks and enqueues run requests. Pushes to
// other branches are acknowledged but ignored.
type PushHandler struct {
	secret string
	branch string
	out    chan<- Request
	logger *log.Logger

	now func() time.Time
}

// NewPushHandler filters pushes to branch. An empty secret disables token
// checking; an empty branch accepts every ref.
func NewPushHandler(secret, branch string, out chan<- Request, logger *log.Logger) *PushHandler {
	return &PushHandler{
		secret: secret,
		branch: branch,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

func (h *PushHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respond(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.secret != "" && r.Header.Get(TokenHeader) != h.secret {
		h.logger.Warn("push rejected: bad token", map[string]any{
			"remote": r.RemoteAddr,
		})
		respond(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var payload pushPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respond(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if !h.refMatches(payload.Ref) {
		h.logger.Debug("push ignored: ref does not match branch", map[string]any{
			"ref":    payload.Ref,
			"branch": h.branch,
		})
		respond(w, http.StatusOK, "ignored")
		return
	}

	select {
	case h.out <- Request{Kind: types.TriggerPush, Ref: payload.Ref, At: h.now()}:
		h.logger.Info("push accepted", map[string]any{"ref": payload.Ref})
		respond(w, http.StatusAccepted, "queued")
	default:
		h.logger.Warn("push dropped: trigger queue full", map[string]any{
			"ref": payload.Ref,
		})
		respond(w, http.StatusServiceUnavailable, "busy")
	}
}

// refMatches accepts the configured branch given either as a bare name or a
// fully qualified ref.
func (h *PushHandler) refMatches(ref string) bool {
	if h.branch == "" {
		return ref != ""
	}
	return ref == h.branch || strings.TrimPrefix(ref, "refs/heads/") == h.branch
}

func respond(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
