package directline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient returns a client pointed at a httptest server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		Secret:   "test-secret",
		Endpoint: srv.URL,
		UserID:   "dl_testuser",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, srv
}

func TestNewClient_RequiresSecret(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	if !errors.Is(err, ErrSecretRequired) {
		t.Fatalf("expected ErrSecretRequired, got %v", err)
	}
}

func TestNewClient_DefaultUserID(t *testing.T) {
	client, err := NewClient(ClientConfig{Secret: "s"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if !strings.HasPrefix(client.UserID(), UserIDPrefix) {
		t.Errorf("default user ID %q missing %q prefix", client.UserID(), UserIDPrefix)
	}
	if len(client.UserID()) <= len(UserIDPrefix) {
		t.Errorf("default user ID %q has no random suffix", client.UserID())
	}
}

func TestStartConversation(t *testing.T) {
	var gotAuth, gotContentType, gotPath string
	var gotBody startRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(Conversation{
			ID:        "conv-1",
			Token:     "conv-token",
			ExpiresIn: 1800,
			StreamURL: "wss://example.com/stream",
		})
	}))

	conv, err := client.StartConversation(context.Background(), StartOptions{UserName: "Ada"})
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	if gotPath != "/v3/directline/conversations" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer test-secret" {
		t.Errorf("expected secret bearer, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("unexpected content type: %s", gotContentType)
	}
	if gotBody.User == nil || gotBody.User.ID != "dl_testuser" || gotBody.User.Name != "Ada" {
		t.Errorf("unexpected user block: %+v", gotBody.User)
	}
	if conv.ID != "conv-1" || conv.Token != "conv-token" || conv.ExpiresIn != 1800 {
		t.Errorf("unexpected conversation: %+v", conv)
	}
}

func TestStartConversation_DelegatedUserToken(t *testing.T) {
	var gotAuth string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(Conversation{ID: "conv-2", Token: "t"})
	}))

	_, err := client.StartConversation(context.Background(), StartOptions{UserToken: "entra-token"})
	if err != nil {
		t.Fatalf("StartConversation failed: %v", err)
	}

	// The user token replaces the secret for this call only.
	if gotAuth != "Bearer entra-token" {
		t.Errorf("expected delegated bearer, got %q", gotAuth)
	}
}

func TestStartConversation_TransportError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"BadArgument"}}`))
	}))

	_, err := client.StartConversation(context.Background(), StartOptions{})
	te, ok := IsTransportError(err)
	if !ok {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Status != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", te.Status)
	}
	if !strings.Contains(te.Body, "BadArgument") {
		t.Errorf("expected raw body preserved, got %q", te.Body)
	}
}

func TestStartConversation_MissingConversationID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"t"}`))
	}))

	_, err := client.StartConversation(context.Background(), StartOptions{})
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestGenerateToken(t *testing.T) {
	var gotBody tokenRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/directline/tokens/generate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Conversation{ID: "conv-3", Token: "t3", ExpiresIn: 1800})
	}))

	conv, err := client.GenerateToken(context.Background(), "Ada", []string{"https://app.example.com"})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if conv.ID != "conv-3" {
		t.Errorf("unexpected conversation ID: %s", conv.ID)
	}
	if gotBody.User == nil || gotBody.User.ID != "dl_testuser" {
		t.Errorf("unexpected user block: %+v", gotBody.User)
	}
	if len(gotBody.TrustedOrigins) != 1 || gotBody.TrustedOrigins[0] != "https://app.example.com" {
		t.Errorf("unexpected trusted origins: %v", gotBody.TrustedOrigins)
	}
}

func TestSendMessage(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody sendRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(sendResponse{ID: "act-1"})
	}))

	id, err := client.SendMessage(context.Background(), "conv-1", "hello bot", "conv-token")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if id != "act-1" {
		t.Errorf("expected activity ID act-1, got %s", id)
	}
	if gotPath != "/v3/directline/conversations/conv-1/activities" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotAuth != "Bearer conv-token" {
		t.Errorf("expected conversation token bearer, got %q", gotAuth)
	}
	if gotBody.Type != "message" || gotBody.Text != "hello bot" {
		t.Errorf("unexpected body: %+v", gotBody)
	}
	if gotBody.From == nil || gotBody.From.ID != "dl_testuser" {
		t.Errorf("unexpected from block: %+v", gotBody.From)
	}
}

func TestSendMessage_RejectsEmptyTextLocally(t *testing.T) {
	called := false
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.SendMessage(context.Background(), "conv-1", text, "")
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("text %q: expected ErrEmptyMessage, got %v", text, err)
		}
	}

	if called {
		t.Error("empty send reached the network")
	}
}

func TestGetActivities(t *testing.T) {
	var gotWatermark []string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotWatermark = r.URL.Query()["watermark"]
		_ = json.NewEncoder(w).Encode(ActivitySet{
			Activities: []Activity{
				{ID: "a1", Type: "message", Text: "Hi", From: ChannelAccount{ID: "bot-1"}},
				{ID: "a2", Type: "typing", From: ChannelAccount{ID: "bot-1"}},
			},
			Watermark: "5",
		})
	}))

	set, err := client.GetActivities(context.Background(), "conv-1", "3", "conv-token")
	if err != nil {
		t.Fatalf("GetActivities failed: %v", err)
	}

	if len(gotWatermark) != 1 || gotWatermark[0] != "3" {
		t.Errorf("expected watermark=3 query, got %v", gotWatermark)
	}
	if len(set.Activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(set.Activities))
	}
	if set.Watermark != "5" {
		t.Errorf("expected watermark 5, got %s", set.Watermark)
	}
	if set.Activities[1].Kind() != KindTyping {
		t.Errorf("expected typing kind, got %v", set.Activities[1].Kind())
	}
}

func TestGetActivities_NoWatermarkQueryWhenEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("watermark") {
			t.Error("watermark query parameter sent for empty watermark")
		}
		_ = json.NewEncoder(w).Encode(ActivitySet{})
	}))

	if _, err := client.GetActivities(context.Background(), "conv-1", "", ""); err != nil {
		t.Fatalf("GetActivities failed: %v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/directline/tokens/refresh" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer old-token" {
			t.Errorf("unexpected bearer: %q", got)
		}
		_ = json.NewEncoder(w).Encode(Conversation{ID: "conv-1", Token: "new-token", ExpiresIn: 1800})
	}))

	conv, err := client.RefreshToken(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if conv.Token != "new-token" {
		t.Errorf("expected renewed token, got %s", conv.Token)
	}
}

func TestRefreshToken_RejectsSecretMode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("refresh with secret reached the network")
	}))

	if _, err := client.RefreshToken(context.Background(), ""); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("expected ErrTokenRequired for empty token, got %v", err)
	}
	if _, err := client.RefreshToken(context.Background(), "test-secret"); !errors.Is(err, ErrTokenRequired) {
		t.Errorf("expected ErrTokenRequired for secret token, got %v", err)
	}
}

func TestResumeConversation(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())

	conv := client.ResumeConversation("existing-conv")
	if conv.ID != "existing-conv" {
		t.Errorf("unexpected conversation ID: %s", conv.ID)
	}
	if conv.Token != "test-secret" {
		t.Errorf("expected secret token in resume mode, got %q", conv.Token)
	}
	if conv.ExpiresIn != 0 {
		t.Errorf("expected zero expiry in resume mode, got %d", conv.ExpiresIn)
	}
}

func TestConversation_WireRoundTrip(t *testing.T) {
	orig := Conversation{
		ID:        "conv-rt",
		Token:     "tok",
		ExpiresIn: 3600,
		StreamURL: "wss://example.com/s",
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	// Wire field names follow the Direct Line API.
	for _, field := range []string{"conversationId", "token", "expires_in", "streamUrl"} {
		if !strings.Contains(string(data), field) {
			t.Errorf("wire form missing field %q: %s", field, data)
		}
	}

	var got Conversation
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got != orig {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, orig)
	}
}

func TestActivityKind(t *testing.T) {
	cases := []struct {
		wireType string
		want     ActivityKind
	}{
		{"message", KindMessage},
		{"event", KindEvent},
		{"invoke", KindInvoke},
		{"typing", KindTyping},
		{"trace", KindOther},
		{"", KindOther},
	}

	for _, tc := range cases {
		a := Activity{Type: tc.wireType}
		if got := a.Kind(); got != tc.want {
			t.Errorf("Kind(%q) = %v, want %v", tc.wireType, got, tc.want)
		}
	}
}

func TestAttachment_IsSignInCard(t *testing.T) {
	cases := []struct {
		contentType string
		want        bool
	}{
		{"application/vnd.microsoft.card.signin", true},
		{"application/vnd.microsoft.card.oauth", true},
		{"application/vnd.microsoft.card.hero", false},
		{"", false},
	}

	for _, tc := range cases {
		a := Attachment{ContentType: tc.contentType}
		if got := a.IsSignInCard(); got != tc.want {
			t.Errorf("IsSignInCard(%q) = %v, want %v", tc.contentType, got, tc.want)
		}
	}
}
