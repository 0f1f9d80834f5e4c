package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDeliversFormData(t *testing.T) {
	var gotPath, gotChat, gotMode, gotText string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotChat = r.FormValue("chat_id")
		gotMode = r.FormValue("parse_mode")
		gotText = r.FormValue("text")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(WithAPIBase(srv.URL))
	ok := tg.Send(context.Background(), "TOKEN", "42", "<b>hello</b>")

	assert.True(t, ok)
	assert.Equal(t, "/botTOKEN/sendMessage", gotPath)
	assert.Equal(t, "42", gotChat)
	assert.Equal(t, "HTML", gotMode)
	assert.Equal(t, "<b>hello</b>", gotText)
}

func TestSendNeverErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram(WithAPIBase(srv.URL))
	assert.False(t, tg.Send(context.Background(), "TOKEN", "42", "hi"))

	// Unreachable endpoint.
	down := NewTelegram(WithAPIBase("http://127.0.0.1:1"))
	assert.False(t, down.Send(context.Background(), "TOKEN", "42", "hi"))

	// Missing credentials short-circuit without a request.
	assert.False(t, tg.Send(context.Background(), "", "42", "hi"))
	assert.False(t, tg.Send(context.Background(), "TOKEN", "", "hi"))
}

func TestMessageFormats(t *testing.T) {
	msg := ParseComplete("My Reel", "https://example.com/r", 1200, 80, 5, 14, 200)
	assert.Contains(t, msg, "<b>My Reel</b>")
	assert.Contains(t, msg, "1200 views (+200)")
	assert.Contains(t, msg, "14 shares")
	assert.True(t, strings.HasSuffix(msg, "https://example.com/r"))

	flat := ParseComplete("My Reel", "https://example.com/r", 1200, 80, 5, 14, 0)
	assert.NotContains(t, flat, "(+")

	alert := ViralAlert("My Reel", "https://example.com/r", 15000)
	assert.Contains(t, alert, "+15000 views this cycle")
	assert.Contains(t, alert, "<b>My Reel</b>")
}
