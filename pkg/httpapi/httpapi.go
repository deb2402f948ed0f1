// Package httpapi exposes the core operations over a thin JSON surface. The
// real presentation layer lives elsewhere; these handlers only translate
// HTTP in and out of the services.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi"

	"github.com/keeptouch/keeptouch/pkg/contacts"
	"github.com/keeptouch/keeptouch/pkg/db"
	"github.com/keeptouch/keeptouch/pkg/followup"
	"github.com/keeptouch/keeptouch/pkg/zoho"
)

type Server struct {
	logger     *log.Logger
	store      *db.Store
	tokens     *zoho.TokenManager
	mail       *zoho.Mail
	calendar   *zoho.CalendarClient
	syncer     *contacts.Syncer
	sweeper    *followup.Sweeper
	cronSecret string
}

func NewServer(
	logger *log.Logger,
	store *db.Store,
	tokens *zoho.TokenManager,
	mail *zoho.Mail,
	calendar *zoho.CalendarClient,
	syncer *contacts.Syncer,
	sweeper *followup.Sweeper,
	cronSecret string,
) *Server {
	return &Server{
		logger:     logger,
		store:      store,
		tokens:     tokens,
		mail:       mail,
		calendar:   calendar,
		syncer:     syncer,
		sweeper:    sweeper,
		cronSecret: cronSecret,
	}
}

// Routes mounts every handler. Authentication of end users is the web
// layer's concern; handlers take the acting user from the X-User-ID header.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/api/contacts/sync", s.handleSyncContacts)
	r.Get("/api/cron/follow-up", s.handleFollowUpSweep)

	r.Post("/api/mail/send", s.handleSendEmail)
	r.Post("/api/mail/draft", s.handleCreateDraft)
	r.Get("/api/mail", s.handleListEmails)
	r.Get("/api/mail/{messageID}/content", s.handleEmailContent)

	r.Get("/api/calendar/events", s.handleListEvents)
	r.Post("/api/calendar/events", s.handleCreateEvent)
	r.Put("/api/calendar/events/{eventUID}", s.handleUpdateEvent)
	r.Delete("/api/calendar/events/{eventUID}", s.handleDeleteEvent)

	r.Get("/api/clients", s.handleListClients)
	r.Post("/api/clients", s.handleCreateClient)

	return r
}

func (s *Server) userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps the error taxonomy onto status codes. NotConnected gets
// its own status so the front end can prompt for (re)authorization instead
// of showing a generic failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var notFound *zoho.NotFoundError

	switch {
	case errors.Is(err, zoho.ErrNotConnected):
		s.writeJSON(w, http.StatusPreconditionFailed, map[string]string{
			"error": "Please connect your Zoho Workspace integration.",
		})
	case errors.As(err, &notFound):
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("request failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (s *Server) handleSyncContacts(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.syncer.SyncContacts(r.Context(), s.userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"contacts": candidates})
}

// handleFollowUpSweep is the external scheduled trigger, guarded by a shared
// secret. Failing items are reported in the body, never as a non-2xx status.
func (s *Server) handleFollowUpSweep(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret == "" || r.Header.Get("Authorization") != "Bearer "+s.cronSecret {
		s.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	result, err := s.sweeper.RunSweep(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	data, err := s.mail.SendEmail(r.Context(), s.userID(r), req.To, req.Subject, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	data, err := s.mail.CreateDraft(r.Context(), s.userID(r), req.To, req.Subject, req.Content)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	client := r.URL.Query().Get("client")
	if client == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing client parameter"})
		return
	}

	messages, err := s.mail.SearchMessages(r.Context(), s.userID(r), "entire:"+client, 20)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleEmailContent(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "messageID")
	folderID := r.URL.Query().Get("folderId")

	content, err := s.mail.MessageContent(r.Context(), s.userID(r), messageID, folderID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": content})
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.calendar.ListEvents(r.Context(), s.userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var event zoho.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	data, err := s.calendar.CreateEvent(r.Context(), s.userID(r), event)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var event zoho.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	data, err := s.calendar.UpdateEvent(r.Context(), s.userID(r), chi.URLParam(r, "eventUID"), event)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.calendar.DeleteEvent(r.Context(), s.userID(r), chi.URLParam(r, "eventUID")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context(), s.userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var client db.Client
	if err := json.NewDecoder(r.Body).Decode(&client); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	client.UserID = s.userID(r)

	id, err := s.store.CreateClient(r.Context(), client)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
