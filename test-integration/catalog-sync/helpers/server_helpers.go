package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/onsi/gomega"

	catalogapp "github.com/pokemnky/catalog-sync/internal/app"
	"github.com/pokemnky/catalog-sync/internal/config"
)

// ServerTestHelper manages the catalog-sync server lifecycle for testing
type ServerTestHelper struct {
	ctx        context.Context
	configPath string
	baseURL    string
	address    string
	httpClient *http.Client
	app        *catalogapp.CatalogApp
}

// NewServerTestHelper creates a server helper listening on a free local port
func NewServerTestHelper(ctx context.Context, configPath string) (*ServerTestHelper, error) {
	address, err := freeAddress()
	if err != nil {
		return nil, err
	}
	return &ServerTestHelper{
		ctx:        ctx,
		configPath: configPath,
		address:    address,
		baseURL:    "http://" + address,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

func freeAddress() (string, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find a free port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().String(), nil
}

// StartServer builds and starts the server programmatically
func (s *ServerTestHelper) StartServer() error {
	cfg, err := config.LoadConfig(config.WithConfigPath(s.configPath))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app, err := catalogapp.NewCatalogApp(s.ctx,
		catalogapp.WithConfig(cfg),
		catalogapp.WithAddress(s.address),
	)
	if err != nil {
		return fmt.Errorf("failed to build app: %w", err)
	}
	s.app = app

	go func() {
		if err := app.Start(); err != nil {
			// The test fails when it tries to connect
			fmt.Fprintf(os.Stderr, "Server start failed: %v\n", err)
		}
	}()

	return nil
}

// StopServer gracefully stops the server
func (s *ServerTestHelper) StopServer() error {
	if s.app != nil {
		return s.app.Stop(5 * time.Second)
	}
	return nil
}

// WaitForServerReady waits for the server to be ready to accept requests
func (s *ServerTestHelper) WaitForServerReady(timeout time.Duration) {
	gomega.Eventually(func() error {
		resp, err := s.httpClient.Get(s.baseURL + "/readiness")
		if err != nil {
			return err
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return nil
	}, timeout, 200*time.Millisecond).Should(gomega.Succeed(), "Server should be ready")
}

// TriggerRun posts a trigger request to /v1/sync/runs
func (s *ServerTestHelper) TriggerRun(body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return s.httpClient.Post(s.baseURL+"/v1/sync/runs", "application/json", bytes.NewReader(data))
}

// TriggerRaw posts a raw body to /v1/sync/runs
func (s *ServerTestHelper) TriggerRaw(body string) (*http.Response, error) {
	return s.httpClient.Post(s.baseURL+"/v1/sync/runs", "application/json", bytes.NewBufferString(body))
}

// GetProgress makes a GET request to /v1/sync/progress
func (s *ServerTestHelper) GetProgress() (*http.Response, error) {
	return s.httpClient.Get(s.baseURL + "/v1/sync/progress")
}

// GetJobs makes a GET request to /v1/sync/jobs
func (s *ServerTestHelper) GetJobs(query string) (*http.Response, error) {
	url := s.baseURL + "/v1/sync/jobs"
	if query != "" {
		url += "?" + query
	}
	return s.httpClient.Get(url)
}

// GetResource makes a GET request to /v1/resources/{kind}/{key}
func (s *ServerTestHelper) GetResource(kind, key string) (*http.Response, error) {
	return s.httpClient.Get(fmt.Sprintf("%s/v1/resources/%s/%s", s.baseURL, kind, key))
}

// DecodeJSON decodes and closes a response body
func DecodeJSON(resp *http.Response, out any) {
	defer func() {
		_ = resp.Body.Close()
	}()
	gomega.Expect(json.NewDecoder(resp.Body).Decode(out)).To(gomega.Succeed())
}

// ConfigOptions tweaks the generated test configuration
type ConfigOptions struct {
	// Schedules are appended verbatim under the schedules key
	Schedules []config.ScheduleConfig
	// RefreshAfter sets kinds.pokemon.refreshAfter
	RefreshAfter string
}

// WriteConfigYAML writes an in-memory configuration pointing at upstreamURL with
// millisecond pacing so runs finish quickly
func WriteConfigYAML(dir, upstreamURL string, opts *ConfigOptions) string {
	content := fmt.Sprintf(`upstream:
  baseURL: %s
  timeout: 5s
  maxRetries: 1
storage:
  type: memory
seed:
  pageSize: 2
  pageDelay: 1ms
worker:
  batchSize: 50
  perRequestDelay: 1ms
  visibilityTimeout: 30s
  budget: 20s
detector:
  probeKinds: [pokemon]
  probeLimit: 10
  delay: 1ms
  budget: 20s
`, upstreamURL)

	if opts != nil && opts.RefreshAfter != "" {
		content += fmt.Sprintf(`kinds:
  pokemon:
    refreshAfter: %s
`, opts.RefreshAfter)
	}

	if opts != nil && len(opts.Schedules) > 0 {
		content += "schedules:\n"
		for _, s := range opts.Schedules {
			content += fmt.Sprintf("  - name: %s\n    mode: %s\n    schedule: %q\n", s.Name, s.Mode, s.Schedule)
		}
	}

	configPath := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return configPath
}
