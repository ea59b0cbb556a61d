package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/docuscan/internal/app"
	"github.com/ayusman/docuscan/internal/autocapture"
	"github.com/ayusman/docuscan/internal/server"
)

func main() {
	var (
		addr     = flag.String("addr", ":8080", "HTTP listen address")
		cameraID = flag.Int("camera", 0, "camera device ID")
		ocrURL   = flag.String("ocr-url", "http://localhost:9090/ocr", "OCR service endpoint")
		fraudURL = flag.String("fraud-url", "http://localhost:9091/analyze", "fraud analysis service endpoint")
	)
	flag.Parse()

	fmt.Println("Docuscan - Guided Document Capture")

	application := app.New(app.Config{
		CameraID: *cameraID,
		Capture:  autocapture.DefaultConfig(),
		OCRURL:   *ocrURL,
		FraudURL: *fraudURL,
	})
	defer application.Close()

	// Find web directory
	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	// Configure and start server
	cfg := server.Config{
		StaticDir: webDir,
		App:       application,
	}

	srv := server.New(cfg)

	fmt.Printf("Starting server on %s\n", *addr)
	if err := srv.ListenAndServe(*addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.docuscan/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	// Check relative paths from current working directory
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	// Check home directory
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".docuscan", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
