package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/donaldgifford/car-deal-tracker/internal/notify"
	"github.com/donaldgifford/car-deal-tracker/pkg/evaluate"
	"github.com/donaldgifford/car-deal-tracker/pkg/llm"
	"github.com/donaldgifford/car-deal-tracker/pkg/market"
	"github.com/donaldgifford/car-deal-tracker/pkg/page"
	domain "github.com/donaldgifford/car-deal-tracker/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func loadTestPages(t *testing.T) *pages {
	t.Helper()
	p, err := loadPages(
		filepath.Join("testdata", "search.html"),
		filepath.Join("testdata", "profile.html"),
	)
	if err != nil {
		t.Fatalf("loading fixtures: %v", err)
	}
	return p
}

func newTestServer(t *testing.T, verdict string) (*httptest.Server, *sink) {
	t.Helper()
	s := &sink{}
	srv := httptest.NewServer(newMux(testLogger(), loadTestPages(t), verdict, s))
	t.Cleanup(srv.Close)
	return srv, s
}

func TestLoadPages_Missing(t *testing.T) {
	if _, err := loadPages("testdata/nope.html", "testdata/profile.html"); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestFixturesParse(t *testing.T) {
	p := loadTestPages(t)

	tests := []struct {
		name     string
		body     []byte
		url      string
		minItems int
	}{
		{"search", p.search, "http://localhost/marketplace/peru/search/", 4},
		{"profile", p.profile, "http://localhost/marketplace/profile/1/", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := page.Parse(string(tt.body), tt.url, page.DefaultSelectors())
			if err != nil {
				t.Fatalf("parsing %s: %v", tt.name, err)
			}
			if got := len(slices.Collect(doc.Elements(0))); got < tt.minItems {
				t.Errorf("elements=%d, want at least %d", got, tt.minItems)
			}
		})
	}
}

func TestProfileFixtureYieldsContext(t *testing.T) {
	p := loadTestPages(t)
	doc, err := page.Parse(string(p.profile), "http://localhost/marketplace/profile/1/", page.DefaultSelectors())
	if err != nil {
		t.Fatalf("parsing profile: %v", err)
	}

	mc := market.NewAnalyzer(market.DefaultPatterns()).Analyze(doc.Elements(0))
	if mc.Fallback {
		t.Fatal("expected a sampled context, got the fallback")
	}
	if mc.AveragePrice != 44500 {
		t.Errorf("average=%v, want 44500", mc.AveragePrice)
	}
}

func TestHTMLHandler(t *testing.T) {
	srv, _ := newTestServer(t, verdictMixed)

	resp, err := http.Get(srv.URL + "/marketplace/peru/search/?query=carros")
	if err != nil {
		t.Fatalf("GET search: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type=%q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("Toyota Yaris")) {
		t.Error("expected search fixture body")
	}
}

func TestJudge(t *testing.T) {
	tests := []struct {
		verdict string
		prompt  string
		want    bool
	}{
		{verdictGood, "anything", true},
		{verdictBad, "Toyota urgente", false},
		{verdictMixed, "Toyota Yaris URGENTE", true},
		{verdictMixed, "Hyundai Accent", false},
	}

	for _, tt := range tests {
		if got := judge(tt.verdict, tt.prompt).IsGoodDeal; got != tt.want {
			t.Errorf("judge(%q, %q)=%v, want %v", tt.verdict, tt.prompt, got, tt.want)
		}
	}
}

func TestChatHandler_WithOpenAIBackend(t *testing.T) {
	srv, _ := newTestServer(t, verdictMixed)

	backend := llm.NewOpenAIBackend(
		llm.WithOpenAIEndpoint(srv.URL),
		llm.WithOpenAIAPIKey("test"),
	)
	resp, err := backend.Generate(context.Background(), llm.GenerateRequest{
		Prompt: "Toyota Yaris 2016 sedan urgente S/ 21,500",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	a, err := evaluate.ParseAssessment(resp.Content)
	if err != nil {
		t.Fatalf("parsing assessment: %v", err)
	}
	if !a.IsGoodDeal {
		t.Error("expected a good deal for the keyword listing")
	}
	if a.RiskLevel != domain.RiskLow {
		t.Errorf("risk=%s, want %s", a.RiskLevel, domain.RiskLow)
	}
}

func TestChatHandler_BadBody(t *testing.T) {
	handler := chatHandler(testLogger(), verdictGood)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader("{"))
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMessagesHandler(t *testing.T) {
	srv, _ := newTestServer(t, verdictBad)

	backend := llm.NewAnthropicBackend(
		llm.WithAnthropicEndpoint(srv.URL+"/v1/messages"),
		llm.WithAnthropicAPIKey("test"),
	)
	resp, err := backend.Generate(context.Background(), llm.GenerateRequest{Prompt: "Kia Rio 2015"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	a, err := evaluate.ParseAssessment(resp.Content)
	if err != nil {
		t.Fatalf("parsing assessment: %v", err)
	}
	if a.IsGoodDeal {
		t.Error("expected no deal with the bad verdict")
	}
}

func TestMessagesHandler_MissingKey(t *testing.T) {
	handler := messagesHandler(testLogger(), verdictGood)
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func testAlert() *notify.DealAlert {
	price := 21500.0
	return &notify.DealAlert{
		Listing: domain.Listing{Identity: "1001", Title: "Toyota Yaris 2016", NumericPrice: &price},
		Assessment: domain.DealAssessment{
			IsGoodDeal: true,
			Confidence: 0.85,
			RiskLevel:  domain.RiskLow,
		},
		DetectedAt: time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestTelegramHandler_WithNotifier(t *testing.T) {
	srv, s := newTestServer(t, verdictMixed)

	n := notify.NewTelegramNotifier("123:abc", "42", notify.WithTelegramEndpoint(srv.URL))
	if err := n.SendDeal(context.Background(), testAlert()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := s.telegram.Load(); got != 1 {
		t.Errorf("telegram count=%d, want 1", got)
	}
}

func TestTelegramHandler_MissingChat(t *testing.T) {
	srv, _ := newTestServer(t, verdictMixed)

	n := notify.NewTelegramNotifier("123:abc", "", notify.WithTelegramEndpoint(srv.URL))
	if err := n.SendDeal(context.Background(), testAlert()); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestDiscordHandler_WithNotifier(t *testing.T) {
	srv, s := newTestServer(t, verdictMixed)

	n := notify.NewDiscordNotifier(srv.URL + "/discord/webhook")
	if err := n.SendDeal(context.Background(), testAlert()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := s.discord.Load(); got != 1 {
		t.Errorf("discord count=%d, want 1", got)
	}
}

func TestDiscordHandler_EmptyPayload(t *testing.T) {
	handler := discordHandler(testLogger(), &sink{})
	body, _ := json.Marshal(map[string]any{"embeds": []any{}})
	req := httptest.NewRequest(http.MethodPost, "/discord/webhook", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want %d", w.Code, http.StatusBadRequest)
	}
}
