package server

import (
	"net/http"
	"time"

	"github.com/jonathan/folio-admin/internal/content"
	log "github.com/sirupsen/logrus"
)

// publicDocument strips the admin password from doc.
func publicDocument(doc *content.Document) *content.Document {
	doc.Settings.AdminPassword = ""
	return doc
}

// handleGetContent returns the full document.
func (s *Server) handleGetContent(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, publicDocument(s.store.Document()))
}

// handleGetSection returns one section.
func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	value, err := publicDocument(s.store.Document()).Section(r.PathValue("section"))
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, value)
}

// handleContentEvents streams a snapshot on connect and after every change.
func (s *Server) handleContentEvents(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Only the latest snapshot matters; a slow client skips intermediate ones.
	updates := make(chan *content.Document, 1)
	unsubscribe := s.store.Subscribe(func(doc *content.Document) {
		select {
		case updates <- doc:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- doc:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := sse.WriteEvent("snapshot", publicDocument(s.store.Document())); err != nil {
		return
	}

	keepAlive := time.NewTicker(s.keepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case doc := <-updates:
			if err := sse.WriteEvent("snapshot", publicDocument(doc)); err != nil {
				log.Debugf("Event stream closed: %v", err)
				return
			}
		case <-keepAlive.C:
			if err := sse.WriteComment("keep-alive"); err != nil {
				return
			}
		}
	}
}
