package webchat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dlchat/internal/directline"
	"dlchat/internal/reconciler"
	"dlchat/pkg/logging"
)

// Handler returns the HTTP handler for the chat page and JSON API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/conversations", s.handleStart)
	mux.HandleFunc("POST /api/conversations/{id}/messages", s.handleMessage)
	mux.HandleFunc("GET /api/conversations/{id}/activities", s.handleActivities)
	mux.HandleFunc("POST /api/conversations/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleEnd)
	return mux
}

type startRequest struct {
	UserName string `json:"userName,omitempty"`
}

type startResponse struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type responseJSON struct {
	ID          string           `json:"id,omitempty"`
	Text        string           `json:"text,omitempty"`
	SignInCard  bool             `json:"signInCard,omitempty"`
	SignInURL   string           `json:"signInUrl,omitempty"`
	Attachments []attachmentJSON `json:"attachments,omitempty"`
}

type attachmentJSON struct {
	ContentType string `json:"contentType,omitempty"`
	ContentURL  string `json:"contentUrl,omitempty"`
}

type messagesResponse struct {
	Responses []responseJSON `json:"responses"`
}

type activitiesResponse struct {
	Activities []responseJSON `json:"activities"`
	Watermark  string         `json:"watermark"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, map[string]interface{}{"BotName": s.cfg.BotName}); err != nil {
		logging.Error("WebChat", err, "Failed to render chat page")
	}
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors from an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	client := s.currentClient()
	conv, err := client.StartConversation(r.Context(), directline.StartOptions{UserName: req.UserName})
	if err != nil {
		s.writeError(w, err)
		return
	}

	session := reconciler.NewSession(client, conv)
	s.sessions.add(conv.ID, session)

	logging.Info("WebChat", "Started conversation %s (%d active)", conv.ID, s.sessions.len())
	writeJSON(w, http.StatusCreated, startResponse{
		ConversationID: conv.ID,
		UserID:         client.UserID(),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.get(r.PathValue("id"))
	if entry == nil {
		http.Error(w, "unknown conversation", http.StatusNotFound)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "message text is required", http.StatusBadRequest)
		return
	}

	// One send-and-await cycle at a time per conversation.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if _, err := entry.session.Send(r.Context(), req.Text); err != nil {
		s.writeError(w, err)
		return
	}

	responses, err := entry.session.AwaitResponse(r.Context(), s.cfg.Await)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := messagesResponse{Responses: make([]responseJSON, 0, len(responses))}
	for _, resp := range responses {
		out.Responses = append(out.Responses, toResponseJSON(resp))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.get(r.PathValue("id"))
	if entry == nil {
		http.Error(w, "unknown conversation", http.StatusNotFound)
		return
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	fresh, err := entry.session.PollOnce(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := activitiesResponse{
		Activities: make([]responseJSON, 0, len(fresh)),
		Watermark:  entry.session.Watermark(),
	}
	for _, activity := range fresh {
		out.Activities = append(out.Activities, toResponseJSON(reconciler.Response{Activity: activity}))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry := s.sessions.get(id)
	if entry == nil {
		http.Error(w, "unknown conversation", http.StatusNotFound)
		return
	}

	// Concurrent refreshes for the same conversation collapse into one
	// backend call.
	_, err, _ := s.refreshGroup.Do(id, func() (interface{}, error) {
		entry.mu.Lock()
		defer entry.mu.Unlock()
		return nil, entry.session.Refresh(r.Context())
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.sessions.get(id) == nil {
		http.Error(w, "unknown conversation", http.StatusNotFound)
		return
	}
	s.sessions.remove(id)
	logging.Info("WebChat", "Ended conversation %s (%d active)", id, s.sessions.len())
	w.WriteHeader(http.StatusNoContent)
}

func toResponseJSON(resp reconciler.Response) responseJSON {
	out := responseJSON{
		ID:         resp.Activity.ID,
		Text:       resp.Text(),
		SignInCard: resp.SignInCard,
	}
	for _, att := range resp.Activity.Attachments {
		out.Attachments = append(out.Attachments, attachmentJSON{
			ContentType: att.ContentType,
			ContentURL:  att.ContentURL,
		})
		if resp.SignInCard && att.IsSignInCard() && out.SignInURL == "" {
			out.SignInURL = signInURL(att)
		}
	}
	return out
}

// signInURL digs the sign-in link out of a card's buttons.
func signInURL(att directline.Attachment) string {
	var card struct {
		Buttons []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"buttons"`
	}
	if err := json.Unmarshal(att.Content, &card); err != nil {
		return ""
	}
	for _, button := range card.Buttons {
		if strings.EqualFold(button.Type, "signin") || strings.EqualFold(button.Type, "openUrl") {
			return button.Value
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("WebChat", err, "Failed to encode response")
	}
}

// writeError maps backend errors onto HTTP status codes. Transport errors
// from the channel keep their status so the page can distinguish an expired
// token from a server fault.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var transportErr *directline.TransportError
	if errors.As(err, &transportErr) {
		http.Error(w, transportErr.Error(), transportErr.Status)
		return
	}
	if errors.Is(err, directline.ErrEmptyMessage) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	logging.Error("WebChat", err, "Request failed")
	http.Error(w, err.Error(), http.StatusBadGateway)
}
