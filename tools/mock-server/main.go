// Package main implements a mock marketplace for local development. It
// serves saved search and profile pages, an OpenAI-compatible and an
// Anthropic-compatible scoring endpoint, and Telegram and Discord sinks, so
// the whole pipeline can run without external accounts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// Verdict modes for the scoring endpoints.
const (
	verdictGood  = "good"
	verdictBad   = "bad"
	verdictMixed = "mixed"
)

// dealKeyword marks listings the mixed verdict calls a good deal.
const dealKeyword = "urgente"

type pages struct {
	search  []byte
	profile []byte
}

type assessment struct {
	IsGoodDeal           bool    `json:"isGoodDeal"`
	Confidence           float64 `json:"confidence"`
	EstimatedMarketPrice float64 `json:"estimatedMarketPrice"`
	ProfitPotential      float64 `json:"profitPotential"`
	RiskLevel            string  `json:"riskLevel"`
	Explanation          string  `json:"explanation"`
	MarketComparison     string  `json:"marketComparison"`
	Recommendation       string  `json:"recommendation"`
}

// sink counts delivered notifications.
type sink struct {
	telegram atomic.Int64
	discord  atomic.Int64
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	searchFile := flag.String("search", "tools/mock-server/testdata/search.html", "search page fixture")
	profileFile := flag.String("profile", "tools/mock-server/testdata/profile.html", "reference profile fixture")
	verdict := flag.String("verdict", verdictMixed, "scoring verdict: good, bad or mixed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	p, err := loadPages(*searchFile, *profileFile)
	if err != nil {
		logger.Error("failed to load fixtures", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock marketplace", "addr", addr, "verdict", *verdict)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, newMux(logger, p, *verdict, &sink{})),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newMux(logger *slog.Logger, p *pages, verdict string, s *sink) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /marketplace/{location}/search/", htmlHandler(logger, "search", p.search))
	mux.HandleFunc("GET /marketplace/profile/{id}/", htmlHandler(logger, "profile", p.profile))
	mux.HandleFunc("POST /v1/chat/completions", chatHandler(logger, verdict))
	mux.HandleFunc("POST /v1/messages", messagesHandler(logger, verdict))
	mux.HandleFunc("POST /{bot}/sendMessage", telegramHandler(logger, s))
	mux.HandleFunc("POST /discord/webhook", discordHandler(logger, s))
	return mux
}

func loadPages(searchPath, profilePath string) (*pages, error) {
	search, err := os.ReadFile(searchPath) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading search fixture: %w", err)
	}
	profile, err := os.ReadFile(profilePath) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading profile fixture: %w", err)
	}
	return &pages{search: search, profile: profile}, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func htmlHandler(logger *slog.Logger, name string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
		w.Write(body)
		logger.Info("page served", "page", name, "query", r.URL.Query().Get("query"))
	}
}

// judge returns the canned assessment for a prompt.
func judge(verdict, prompt string) assessment {
	good := verdict == verdictGood ||
		(verdict == verdictMixed && strings.Contains(strings.ToLower(prompt), dealKeyword))

	if good {
		return assessment{
			IsGoodDeal:           true,
			Confidence:           0.85,
			EstimatedMarketPrice: 30000,
			ProfitPotential:      22,
			RiskLevel:            "bajo",
			Explanation:          "Precio por debajo del promedio del mercado.",
			MarketComparison:     "Aproximadamente 20% bajo el promedio.",
			Recommendation:       "Contactar al vendedor hoy.",
		}
	}
	return assessment{
		IsGoodDeal:           false,
		Confidence:           0.6,
		EstimatedMarketPrice: 30000,
		ProfitPotential:      3,
		RiskLevel:            "medio",
		Explanation:          "Precio en linea con el mercado.",
		MarketComparison:     "Cerca del promedio.",
		Recommendation:       "No priorizar.",
	}
}

func chatHandler(logger *slog.Logger, verdict string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]string{"message": "invalid JSON body", "type": "invalid_request_error"},
			})
			return
		}

		var prompt strings.Builder
		for _, m := range req.Messages {
			prompt.WriteString(m.Content)
		}
		content, _ := json.Marshal(judge(verdict, prompt.String())) //nolint:errchkjson // fixed struct

		writeJSON(w, http.StatusOK, map[string]any{
			"model": req.Model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": string(content)}},
			},
			"usage": map[string]int{"prompt_tokens": prompt.Len() / 4, "completion_tokens": len(content) / 4},
		})
		logger.Info("chat completion", "model", req.Model)
	}
}

func messagesHandler(logger *slog.Logger, verdict string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"type":  "error",
				"error": map[string]string{"type": "authentication_error", "message": "missing x-api-key"},
			})
			return
		}

		var req struct {
			Model    string `json:"model"`
			System   string `json:"system"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"type":  "error",
				"error": map[string]string{"type": "invalid_request_error", "message": "invalid JSON body"},
			})
			return
		}

		prompt := req.System
		for _, m := range req.Messages {
			prompt += m.Content
		}
		content, _ := json.Marshal(judge(verdict, prompt)) //nolint:errchkjson // fixed struct

		writeJSON(w, http.StatusOK, map[string]any{
			"model":   req.Model,
			"content": []map[string]string{{"type": "text", "text": string(content)}},
			"usage":   map[string]int{"input_tokens": len(prompt) / 4, "output_tokens": len(content) / 4},
		})
		logger.Info("message", "model", req.Model)
	}
}

func telegramHandler(logger *slog.Logger, s *sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.PathValue("bot"), "bot") {
			http.NotFound(w, r)
			return
		}

		var msg struct {
			ChatID string `json:"chat_id"`
			Text   string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.ChatID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"ok": false, "description": "Bad Request: chat_id is empty",
			})
			return
		}

		n := s.telegram.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": map[string]int64{"message_id": n}})
		logger.Info("telegram message", "chat_id", msg.ChatID, "count", n)
	}
}

func discordHandler(logger *slog.Logger, s *sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Embeds []json.RawMessage `json:"embeds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || len(payload.Embeds) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Cannot send an empty message"})
			return
		}

		n := s.discord.Add(1)
		w.WriteHeader(http.StatusNoContent)
		logger.Info("discord webhook", "embeds", len(payload.Embeds), "count", n)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
