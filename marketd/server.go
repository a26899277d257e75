package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cloudx-io/sealedbid/house"
)

// Server exposes the auction house over HTTP. Requests beyond the worker
// limit are rejected immediately rather than queued.
type Server struct {
	house      *house.House
	keyManager *KeyManager
	router     *mux.Router
	semaphore  chan struct{}
}

func NewServer(h *house.House, km *KeyManager, maxWorkers int) *Server {
	s := &Server{
		house:      h,
		keyManager: km,
		router:     mux.NewRouter(),
		semaphore:  make(chan struct{}, maxWorkers),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.limitWorkers)

	s.router.HandleFunc("/key", s.handlePublicKey).Methods(http.MethodGet)
	s.router.HandleFunc("/items", s.handleListItem).Methods(http.MethodPost)
	s.router.HandleFunc("/items", s.handleGetItems).Methods(http.MethodGet)
	s.router.HandleFunc("/items/{id}", s.handleGetItem).Methods(http.MethodGet)
	s.router.HandleFunc("/items/{id}/bids", s.handlePlaceBid).Methods(http.MethodPost)
	s.router.HandleFunc("/items/{id}/reveals", s.handleRevealBid).Methods(http.MethodPost)
	s.router.HandleFunc("/items/{id}/finalize", s.handleFinalize).Methods(http.MethodPost)
	s.router.HandleFunc("/items/{id}/settle", s.handleSettle).Methods(http.MethodPost)
	s.router.HandleFunc("/items/{id}/settle/retry", s.handleRetrySettlement).Methods(http.MethodPost)
	s.router.HandleFunc("/items/{id}/escrow", s.handleGetEscrow).Methods(http.MethodGet)
}

// limitWorkers bounds concurrent request handling. Pool-full requests get an
// immediate 503 instead of queueing behind slow transfers.
func (s *Server) limitWorkers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case s.semaphore <- struct{}{}:
			defer func() { <-s.semaphore }()
			next.ServeHTTP(w, r)
		default:
			log.Printf("INFO: No workers available, rejecting request (pool full)")
			http.Error(w, "server busy", http.StatusServiceUnavailable)
		}
	})
}

func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	log.Printf("INFO: market server listening on %s", addr)
	return srv.ListenAndServe()
}
