package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/tollbatch/internal/core"
	"github.com/JonMunkholm/tollbatch/internal/logging"
	"github.com/JonMunkholm/tollbatch/internal/tollapi"
)

// maxJSONBody caps single lookup request bodies.
const maxJSONBody = 64 << 10

type tollRequest struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Waypoints   []string `json:"waypoints"`
	JourneyType string   `json:"journey_type"`
}

// handleToll prices a single trip.
func (s *Server) handleToll(w http.ResponseWriter, r *http.Request) {
	var req tollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.JourneyType != "" && !core.IsValidJourneyType(req.JourneyType) {
		writeError(w, r, http.StatusBadRequest, "invalid journey_type: "+req.JourneyType)
		return
	}

	logging.FromContext(r.Context()).Info("toll lookup",
		"origin", req.Origin,
		"destination", req.Destination,
		"waypoints", len(req.Waypoints),
		"journey_type", req.JourneyType,
	)

	details, err := s.client.Toll(r.Context(), core.TripRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Waypoints:   req.Waypoints,
		JourneyType: req.JourneyType,
	})
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// handleFuelPrice returns fuel prices for a place.
func (s *Server) handleFuelPrice(w http.ResponseWriter, r *http.Request) {
	var q tollapi.FuelQuery
	if err := decodeJSON(w, r, &q); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	prices, err := s.client.FuelPrice(r.Context(), q)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	writeJSON(w, http.StatusOK, prices)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
