package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"cryptopulse/config"
)

func testConfig(baseURL string) config.TelegramConfig {
	return config.TelegramConfig{
		Enabled:        true,
		BaseURL:        baseURL,
		BotToken:       "test-token",
		ChatID:         "42",
		TimeoutSeconds: 5,
	}
}

func TestSendMessage(t *testing.T) {
	var gotPath, gotChat, gotText string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	n := NewTelegram(testConfig(server.URL))
	if err := n.SendMessage(context.Background(), "hello market"); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if gotPath != "/bottest-token/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChat != "42" || gotText != "hello market" {
		t.Fatalf("unexpected form values chat=%q text=%q", gotChat, gotText)
	}
}

func TestSendMessageChunksLongText(t *testing.T) {
	var chunks []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		chunks = append(chunks, r.FormValue("text"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	line := strings.Repeat("x", 100)
	var b strings.Builder
	for i := 0; i < 90; i++ {
		b.WriteString(line)
		b.WriteString("\n")
	}

	n := NewTelegram(testConfig(server.URL))
	if err := n.SendMessage(context.Background(), b.String()); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected long text to be chunked, got %d requests", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > maxMessageLen {
			t.Fatalf("chunk %d exceeds limit: %d bytes", i, len(chunk))
		}
	}
}

func TestSendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	n := NewTelegram(testConfig(server.URL))
	err := n.SendMessage(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestSendReportPhotoAndRemainder(t *testing.T) {
	var paths []string
	var caption string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, "/sendPhoto") {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("failed to parse multipart form: %v", err)
			}
			caption = r.FormValue("caption")
			if _, _, err := r.FormFile("photo"); err != nil {
				t.Fatalf("expected photo part: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString(strings.Repeat("y", 50))
		b.WriteString("\n")
	}

	n := NewTelegram(testConfig(server.URL))
	if err := n.SendReport(context.Background(), b.String(), []byte("\x89PNGfake")); err != nil {
		t.Fatalf("SendReport returned error: %v", err)
	}

	if len(paths) != 2 || !strings.HasSuffix(paths[0], "/sendPhoto") || !strings.HasSuffix(paths[1], "/sendMessage") {
		t.Fatalf("expected photo then message, got %v", paths)
	}
	if len(caption) == 0 || len(caption) > maxCaptionLen {
		t.Fatalf("unexpected caption length %d", len(caption))
	}
}

func TestDisabledNotifierIsNoop(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	n := NewTelegram(cfg)
	if err := n.SendReport(context.Background(), "text", []byte("png")); err != nil {
		t.Fatalf("disabled notifier should not error: %v", err)
	}
}

func TestSplitAt(t *testing.T) {
	head, tail := splitAt("aaa\nbbb\nccc", 9)
	if head != "aaa\nbbb" || tail != "ccc" {
		t.Fatalf("unexpected split: head=%q tail=%q", head, tail)
	}

	head, tail = splitAt("abcdefgh", 4)
	if head != "abcd" || tail != "efgh" {
		t.Fatalf("unexpected hard cut: head=%q tail=%q", head, tail)
	}

	head, tail = splitAt("short", 10)
	if head != "short" || tail != "" {
		t.Fatalf("unexpected passthrough: head=%q tail=%q", head, tail)
	}
}

func TestSplitAtKeepsRunesIntact(t *testing.T) {
	text := strings.Repeat("é", 10)

	head, tail := splitAt(text, 5)
	if !utf8.ValidString(head) || !utf8.ValidString(tail) {
		t.Fatalf("hard cut split a rune: head=%q tail=%q", head, tail)
	}
	if head+tail != text {
		t.Fatalf("split lost content: head=%q tail=%q", head, tail)
	}
	if len(head) > 5 {
		t.Fatalf("head exceeds limit: %d bytes", len(head))
	}
}
