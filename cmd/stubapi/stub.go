package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/mxscan/scankit/logger"
	"github.com/mxscan/scankit/place"
)

type stub struct {
	log    logger.Logger
	byID   map[int64]place.Record
	byCode map[string]place.Record

	mutex sync.Mutex
	seen  map[string]bool // client ids already accepted
	scans []place.Submission
}

func newStub(log logger.Logger) *stub {
	s := &stub{
		log:    log.WithPrefix("[stub]"),
		byID:   make(map[int64]place.Record),
		byCode: make(map[string]place.Record),
		seen:   make(map[string]bool),
	}
	for _, rec := range seedPlaces() {
		rec.MXType = place.ResolveMXType(rec.StorageType, rec.BoxType, rec.Dimensions, rec.Category)
		s.byID[rec.PlaceCod] = rec
		s.byCode[place.NormalizeKey(rec.PlaceName)] = rec
	}
	return s
}

func seedPlaces() []place.Record {
	now := time.Now().Format(time.RFC3339)
	return []place.Record{
		{PlaceCod: 100101, PlaceName: "Э6.01.01.01", QtySHK: 12, StorageType: "Короб", Dimensions: "600x400x300", Category: "Одежда", Floor: 6, RowNum: 1, Section: 1, Shelf: 1, Cell: 1, UpdatedAt: now},
		{PlaceCod: 100102, PlaceName: "Э6.01.01.02", QtySHK: 4, StorageType: "Короб", Dimensions: "600x400x300", Category: "Одежда", Floor: 6, RowNum: 1, Section: 1, Shelf: 1, Cell: 2, UpdatedAt: now},
		{PlaceCod: 100201, PlaceName: "Э6.01.02.01", QtySHK: 31, BoxType: "Полка", Dimensions: "1200x500x400", Category: "Крупногабарит", Floor: 6, RowNum: 1, Section: 2, Shelf: 1, Cell: 1, UpdatedAt: now},
		{PlaceCod: 200101, PlaceName: "А1.02.01.01", QtySHK: 0, Dimensions: "400x300x200", Category: "Не указана", Floor: 1, RowNum: 2, Section: 1, Shelf: 1, Cell: 1, UpdatedAt: now},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *stub) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *stub) handlePlace(w http.ResponseWriter, r *http.Request) {
	code := place.NormalizeKey(mux.Vars(r)["code"])
	if !place.ValidCode(code) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed place code"})
		return
	}
	var rec place.Record
	var found bool
	if id, err := strconv.ParseInt(code, 10, 64); err == nil {
		rec, found = s.byID[id]
	} else {
		rec, found = s.byCode[code]
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "place not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *stub) handleScanComplete(w http.ResponseWriter, r *http.Request) {
	var sub place.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed submission"})
		return
	}
	if sub.Badge == "" || sub.PlaceCod == 0 || !sub.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing badge, place or status"})
		return
	}
	if _, ok := s.byID[sub.PlaceCod]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "place not found"})
		return
	}

	s.mutex.Lock()
	duplicate := sub.ClientID != "" && s.seen[sub.ClientID]
	if !duplicate {
		if sub.ClientID != "" {
			s.seen[sub.ClientID] = true
		}
		s.scans = append(s.scans, sub)
	}
	s.mutex.Unlock()

	if duplicate {
		// The outbox retries at-least-once; absorbing replays keeps the
		// client's sweep simple.
		s.log.Debug("duplicate delivery of %s absorbed", sub.ClientID)
	} else {
		s.log.Info("scan recorded: place %d status %s (%d photos)", sub.PlaceCod, sub.Status, len(sub.Photos))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": "recorded"})
}
