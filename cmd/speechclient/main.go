// speechclient uploads one recorded clip to a running service and prints
// the synchronous transcript/match reply. Useful for manual end-to-end
// checks against a local instance.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

func main() {
	audioFile := flag.String("audio", "../../testdata/sample.ogg", "Path to recorded audio clip")
	serverAddr := flag.String("server", "http://localhost:8080", "Service base URL")
	childID := flag.String("child", "1", "Child account id")
	flag.Parse()

	f, err := os.Open(*audioFile)
	if err != nil {
		log.Fatalf("Failed to open audio file: %v", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("data", filepath.Base(*audioFile))
	if err != nil {
		log.Fatalf("Failed to build upload: %v", err)
	}
	n, err := io.Copy(fw, f)
	if err != nil {
		log.Fatalf("Failed to read audio: %v", err)
	}
	mw.Close()

	log.Printf("Uploading %s (%d bytes) as child %s", *audioFile, n, *childID)

	req, err := http.NewRequest(http.MethodPost, *serverAddr+"/v1/child/speech", &buf)
	if err != nil {
		log.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Child-Id", *childID)

	client := &http.Client{Timeout: 60 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	log.Printf("Status %d in %v", resp.StatusCode, time.Since(start))
	fmt.Println(string(body))
}
