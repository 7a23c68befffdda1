package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

type inferenceResponse struct {
	Text                string  `json:"text"`
	Language            string  `json:"language"`
	LanguageProbability float64 `json:"language_probability"`
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	Translated string `json:"translated"`
}

func inferenceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	language := r.FormValue("language")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 INFERENCE REQUEST: file=%s size=%d bytes language=%q",
		header.Filename, len(audioData), language)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := inferenceResponse{
		Text:                "This is a test transcription of the audio fragment",
		Language:            "en",
		LanguageProbability: 0.95,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ INFERENCE RESPONSE SENT: '%s'", response.Text)
}

func translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	log.Printf("🌍 TRANSLATE REQUEST: %s -> %s: '%s'", req.Source, req.Target, req.Text)

	time.Sleep(100 * time.Millisecond)

	response := translateResponse{
		Translated: "[" + req.Target + "] " + req.Text,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSLATE RESPONSE SENT: '%s'", response.Translated)
}

func main() {
	http.HandleFunc("/inference", inferenceHandler)
	http.HandleFunc("/translate", translateHandler)

	port := ":9000"
	log.Printf("🚀 Test Backend Server starting on port %s", port)
	log.Printf("📡 Inference endpoint:   http://localhost%s/inference", port)
	log.Printf("📡 Translation endpoint: http://localhost%s/translate", port)
	log.Println("💡 Point transcription.endpoint and translation.endpoint at http://localhost:9000")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
