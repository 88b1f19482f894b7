// Package server exposes the playback engine over a small JSON API plus
// the audio stream endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/stemsync/stemsync/internal/config"
	"github.com/stemsync/stemsync/internal/engine"
	"github.com/stemsync/stemsync/internal/logger"
	"github.com/stemsync/stemsync/internal/nowplaying"
	"github.com/stemsync/stemsync/internal/stream"
)

type Server struct {
	cfg   config.Config
	coord *engine.Coordinator
	hub   *EventHub
	np    *nowplaying.Store

	broadcaster *stream.Broadcaster
	webrtcOut   *stream.WebRTCHandler
	mp3Out      *stream.HTTPHandler
}

// New wires the API around an engine. The coordinator's change events are
// bridged to the websocket feed and the now-playing store.
func New(cfg config.Config, coord *engine.Coordinator, b *stream.Broadcaster) *Server {
	s := &Server{
		cfg:         cfg,
		coord:       coord,
		hub:         NewEventHub(),
		np:          nowplaying.NewStore(),
		broadcaster: b,
		webrtcOut:   stream.NewWebRTCHandler(b, cfg.OpusBitrate),
		mp3Out:      stream.NewHTTPHandler(b, cfg.FFmpegPath, cfg.MP3Bitrate),
	}

	coord.SetNowPlayingPublisher(s.np)
	coord.OnChange(s.hub.Broadcast)
	return s
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/load", s.handleLoad).Methods(http.MethodPost)
	api.HandleFunc("/play", s.handlePlay).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/seek", s.handleSeek).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	r.Handle("/ws/events", s.hub)
	r.Handle("/stream", s.mp3Out).Methods(http.MethodGet)
	r.Handle("/offer", s.webrtcOut)

	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.Router()}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down http server")
		srv.Close()
	}()

	logger.Info("stemsync listening", logger.String("addr", addr))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
