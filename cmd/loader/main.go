package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
}

type uploadResponse struct {
	DocumentID    string `json:"document_id"`
	ChunksIndexed int    `json:"chunks_indexed"`
	Error         string `json:"error"`
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "base URL of the recall server")
	apiKey := flag.String("api-key", os.Getenv("RECALL_API_KEY"), "client API key")
	dir := flag.String("dir", ".", "directory of documents to upload")
	flag.Parse()

	if *apiKey == "" {
		color.Red("an API key is required (-api-key or RECALL_API_KEY)")
		os.Exit(1)
	}

	files, err := collectFiles(*dir)
	if err != nil {
		color.Red("failed to scan %s: %v", *dir, err)
		os.Exit(1)
	}
	if len(files) == 0 {
		color.Yellow("no supported documents found under %s", *dir)
		return
	}

	color.Cyan("Uploading %d documents to %s", len(files), *serverURL)
	bar := getProgressBar(len(files), "Uploading")

	client := &http.Client{Timeout: 5 * time.Minute}
	var failed int
	for _, path := range files {
		if err := uploadFile(client, *serverURL, *apiKey, path); err != nil {
			failed++
			fmt.Println()
			color.Red("  %s: %v", filepath.Base(path), err)
		}
		_ = bar.Add(1)
	}
	fmt.Println()

	if failed > 0 {
		color.Red("%d of %d uploads failed", failed, len(files))
		os.Exit(1)
	}
	color.Green("All %d documents indexed", len(files))
}

func collectFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func uploadFile(client *http.Client, serverURL, apiKey, path string) error {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := part.Write(fileBytes); err != nil {
		return fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(serverURL, "/")+"/upload", &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result uploadResponse
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return fmt.Errorf("unexpected response (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server rejected upload (status %d): %s", resp.StatusCode, result.Error)
	}
	return nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
