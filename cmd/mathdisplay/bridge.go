package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/mathdisplay"
	"github.com/hazyhaar/mathdisplay/dom"
	"github.com/hazyhaar/mathdisplay/mathdetect"
)

// domChangedRequest is the body of POST /dom-changed. Every field is
// optional; without a node the whole document is rescanned.
type domChangedRequest struct {
	Node    int64  `json:"node"`
	Library string `json:"library"`
}

// nodeLookup resolves an in-page node ID to a node.
type nodeLookup func(id int64) dom.Node

// newBridgeRouter exposes the host side of the display over HTTP.
func newBridgeRouter(d *mathdisplay.Display, nodes nodeLookup, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/dom-changed", func(w http.ResponseWriter, req *http.Request) {
		var body domChangedRequest
		data, err := io.ReadAll(io.LimitReader(req.Body, 1<<16))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		var target dom.Node
		if body.Node != 0 && nodes != nil {
			if target = nodes(body.Node); target == nil {
				logger.Debug("mathdisplay: domChanged for unknown node, rescanning", "node", body.Node)
			}
		}
		d.DOMChanged(target)
		logger.Debug("mathdisplay: domChanged", "library", body.Library, "node", body.Node)
		w.WriteHeader(http.StatusAccepted)
	})

	r.Post("/detect", func(w http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]bool{"math": mathdetect.ContainsMathJSON(data)})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, d.Stats())
	})

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
