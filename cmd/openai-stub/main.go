// Command openai-stub serves a minimal OpenAI-compatible endpoint that
// answers the summarization prompt with a deterministic completion. Point the
// CLI at it for offline runs:
//
//	openai-stub &
//	OPENAI_API_KEY=stub pagesum -llm.base http://localhost:8081/v1 -print https://example.com
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

func main() {
	model := envDefault("MODEL_ID", "stub-model")
	addr := envDefault("ADDR", ":8081")

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []map[string]any{{"id": model, "object": "model"}}})
	})
	mux.HandleFunc("/v1/chat/completions", handleChat)

	log.Printf("openai-stub listening on %s (model=%s)", addr, model)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func handleChat(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	var system, user string
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "user":
			user = m.Content
		}
	}
	if !strings.Contains(system, "6 bullets max") {
		http.Error(w, "unexpected system", http.StatusBadRequest)
		return
	}
	reply := chatMessage{Role: "assistant", Content: completionFor(user)}
	writeJSON(w, chatResponse{Choices: []chatChoice{{Message: reply}}})
}

// completionFor fabricates a bullets-plus-TL;DR reply from the user prompt,
// echoing the source URL and the word count of the submitted text.
func completionFor(user string) string {
	src := "the page"
	words := 0
	inContent := false
	for _, line := range strings.Split(user, "\n") {
		if s, ok := strings.CutPrefix(line, "Source: "); ok {
			src = strings.TrimSpace(s)
			continue
		}
		if strings.HasPrefix(line, "Content:") {
			inContent = true
			continue
		}
		if inContent {
			words += len(strings.Fields(line))
		}
	}
	lines := []string{
		"- Stubbed summary of " + src + ".",
		"- The extracted text carried roughly " + strconv.Itoa(words) + " words.",
		"- Replace this server with a real model for actual insight.",
		"TL;DR: deterministic stub output for " + src + ".",
	}
	return strings.Join(lines, "\n")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
