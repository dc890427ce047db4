// Command recognizer-stub is a fake recognition endpoint for local testing.
// It accepts the multipart requests the service sends and returns a canned
// transcription, so the full pipeline can be exercised without a real
// speech recognition backend.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type recognitionResponse struct {
	Text        string    `json:"text"`
	Confidence  float32   `json:"confidence"`
	Language    string    `json:"language"`
	Duration    float64   `json:"duration"`
	ProcessedAt time.Time `json:"processed_at"`
}

var (
	delay    = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
	text     = flag.String("text", "dies ist eine testtranskription", "Canned transcription text")
	noSpeech = flag.Bool("no-speech", false, "Return empty text to simulate silence")
	port     = flag.Int("port", 9000, "Listen port")
)

func recognizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	requestID := r.FormValue("request_id")
	language := r.FormValue("language")
	duration := r.FormValue("duration")

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

	log.Printf("recognition request: id=%s file=%s size=%d language=%s duration=%ss",
		requestID, header.Filename, len(audioData), language, duration)

	time.Sleep(*delay)

	response := recognitionResponse{
		Confidence:  0.95,
		Language:    language,
		Duration:    parseFloat64(duration),
		ProcessedAt: time.Now(),
	}
	if !*noSpeech {
		response.Text = *text
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("recognition response sent: %q", response.Text)
}

func parseFloat64(s string) float64 {
	var val float64
	fmt.Sscanf(s, "%f", &val)
	return val
}

func main() {
	flag.Parse()

	http.HandleFunc("/recognize", recognizeHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("recognizer stub listening on %s", addr)
	log.Printf("endpoint: http://localhost%s/recognize", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
