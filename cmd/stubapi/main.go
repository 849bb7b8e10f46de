// stubapi is a local stand-in for the warehouse collaborator API. It
// serves a small seeded place table so the scanning client can be
// developed and field-tested without the real backend. It is a dev
// fixture, not a server: nothing submitted to it survives a restart.
package main

import (
	"flag"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mxscan/scankit/logger"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log := logger.NewConsoleLogger()
	srv := newStub(log)

	r := mux.NewRouter()
	r.HandleFunc("/api/health", srv.handleHealth).Methods("GET")
	r.HandleFunc("/api/place/{code}", srv.handlePlace).Methods("GET")
	r.HandleFunc("/api/scan/complete", srv.handleScanComplete).Methods("POST")

	log.Info("stub collaborator listening on %s with %d seeded places", *addr, len(srv.byCode))
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal("%s", err)
	}
}
