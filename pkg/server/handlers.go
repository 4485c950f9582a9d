package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/export"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/predict"
)

var errBadRequest = errors.New("bad request")

type (
	//nolint:tagliatelle // dashboard naming
	predictRequest struct {
		Track      string  `json:"track"`
		CurrentLap int     `json:"current_lap"`
		TargetLaps int     `json:"target_laps"`
		Threshold  float64 `json:"threshold"`
		Strategy   bool    `json:"strategy"`
	}
	//nolint:tagliatelle // dashboard naming
	exportRequest struct {
		Track       string                  `json:"track"`
		CurrentLap  int                     `json:"current_lap"`
		Predictions []model.PredictionEntry `json:"predictions"`
	}
	//nolint:tagliatelle // dashboard naming
	errorResponse struct {
		Status    model.Status        `json:"status"`
		Category  model.ErrorCategory `json:"category"`
		Message   string              `json:"message"`
		Error     string              `json:"error"`
		RequestID string              `json:"request_id,omitempty"`
	}
	streamMessage struct {
		Type     string            `json:"type"`
		Progress *predict.Progress `json:"progress,omitempty"`
		Report   *predict.Report   `json:"report,omitempty"`
		Error    *errorResponse    `json:"error,omitempty"`
	}
)

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.predictor.Catalog().Tracks())
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if err := validate(req); err != nil {
		s.badRequest(w, err)
		return
	}
	report := s.predictor.Run(r.Context(), toRequest(req), nil)
	if !report.OK() {
		s.writeJSON(w, http.StatusOK, failure(report))
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStrategy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lap, err := strconv.Atoi(q.Get("lap"))
	if err != nil || strings.TrimSpace(q.Get("track")) == "" {
		s.badRequest(w, fmt.Errorf("%w: track and numeric lap are required", errBadRequest))
		return
	}
	if lap < 1 {
		s.badRequest(w, fmt.Errorf("%w: lap must be positive", errBadRequest))
		return
	}
	s.writeJSON(w, http.StatusOK, s.predictor.Strategy(r.Context(), q.Get("track"), lap))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	data, err := export.Bytes(req.Predictions)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", export.FileName(req.Track, req.CurrentLap)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.l.Warn("could not write export", log.ErrorField(err))
	}
}

// handlePredictStream runs a prediction and streams progress messages
// followed by the report over a websocket.
//
//nolint:funlen // message sequence
func (s *Server) handlePredictStream(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := predictRequest{Track: q.Get("track"), Strategy: q.Get("strategy") == "true"}
	var err error
	if req.CurrentLap, err = strconv.Atoi(q.Get("lap")); err != nil {
		s.badRequest(w, fmt.Errorf("%w: numeric lap is required", errBadRequest))
		return
	}
	if t := q.Get("target"); t != "" {
		if req.TargetLaps, err = strconv.Atoi(t); err != nil {
			s.badRequest(w, fmt.Errorf("%w: target must be numeric", errBadRequest))
			return
		}
	}
	if th := q.Get("threshold"); th != "" {
		if req.Threshold, err = strconv.ParseFloat(th, 64); err != nil {
			s.badRequest(w, fmt.Errorf("%w: threshold must be numeric", errBadRequest))
			return
		}
	}
	if err = validate(req); err != nil {
		s.badRequest(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.l.Warn("websocket upgrade failed", log.ErrorField(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// the client does not send anything, reading detects a closed connection
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(msg streamMessage) {
		if err := conn.WriteJSON(msg); err != nil {
			s.l.Debug("could not send stream message", log.ErrorField(err))
			cancel()
		}
	}
	report := s.predictor.Run(ctx, toRequest(req), func(p predict.Progress) {
		send(streamMessage{Type: "progress", Progress: &p})
	})
	if report.OK() {
		send(streamMessage{Type: "report", Report: report})
	} else {
		send(streamMessage{Type: "error", Error: failure(report)})
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func validate(req predictRequest) error {
	switch {
	case strings.TrimSpace(req.Track) == "":
		return fmt.Errorf("%w: track is required", errBadRequest)
	case req.CurrentLap < 1:
		return fmt.Errorf("%w: current_lap must be positive", errBadRequest)
	case req.TargetLaps < 0:
		return fmt.Errorf("%w: target_laps must not be negative", errBadRequest)
	case req.Threshold < 0:
		return fmt.Errorf("%w: threshold must not be negative", errBadRequest)
	}
	return nil
}

func toRequest(req predictRequest) predict.Request {
	return predict.Request{
		Track:      req.Track,
		CurrentLap: req.CurrentLap,
		TargetLaps: req.TargetLaps,
		Threshold:  req.Threshold,
		Strategy:   req.Strategy,
	}
}

func failure(report *predict.Report) *errorResponse {
	return &errorResponse{
		Status:    model.StatusError,
		Category:  report.Forecast.Category,
		Message:   report.Message,
		Error:     report.Forecast.Error,
		RequestID: report.RequestID,
	}
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.writeJSON(w, http.StatusBadRequest, &errorResponse{
		Status:   model.StatusError,
		Category: model.CategoryGeneric,
		Message:  predict.UserMessage(model.CategoryGeneric, err.Error()),
		Error:    err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.l.Warn("could not write response", log.ErrorField(err))
	}
}
