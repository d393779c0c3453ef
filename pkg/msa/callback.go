package msa

import (
	"context"
	"net/http"
	"time"
)

// DefaultCallbackAddr is where the redirect URL of the Azure application
// is expected to point for the authorization code flow.
const DefaultCallbackAddr = "localhost:8080"

type CallbackServer struct {
	codeChannel chan string
	server      *http.Server
}

func NewCallbackServer(addr string, codeChannel chan string) *CallbackServer {
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	cs := &CallbackServer{codeChannel: codeChannel}
	cs.server = &http.Server{
		Addr:              addr,
		Handler:           cs.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return cs
}

// Handler accepts the redirect carrying ?code=. Extra redirects while a code
// is already pending are answered but dropped.
func (cs *CallbackServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "authorization failed: "+e, http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case cs.codeChannel <- code:
		default:
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Minecraft login authorized. You may close this window."))
	})
	return mux
}

func (cs *CallbackServer) Start() error {
	return cs.server.ListenAndServe()
}

func (cs *CallbackServer) Stop(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}
