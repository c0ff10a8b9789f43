package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/go-coliving-admin/shared/assets"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// maxBodySize bounds proxied request bodies; image uploads are the largest
const maxBodySize = assets.MaxImageSize + 1<<20

// identityHeaders are set only by the gateway
var identityHeaders = []string{"X-User-ID", "X-User-Email", "X-User-Role"}

// ServiceClient handles HTTP communication with microservices
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// ServiceClients holds all service clients
type ServiceClients struct {
	AuthService     *ServiceClient
	MembersService  *ServiceClient
	RentalService   *ServiceClient
	NotifierService *ServiceClient
	RetryConsumer   *ServiceClient
}

// NewServiceClient creates a new service client
func NewServiceClient(name, baseURL string) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProxyRequest proxies requests to the appropriate microservice
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
		if err != nil {
			utils.BadRequestResponse(c, "Failed to read request body")
			return
		}
		if len(bodyBytes) > maxBodySize {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	// Identity comes from the verified token, never from the client
	for _, h := range identityHeaders {
		req.Header.Del(h)
	}
	if userID := c.GetString("user_id"); userID != "" {
		req.Header.Set("X-User-ID", userID)
		req.Header.Set("X-User-Email", c.GetString("email"))
		req.Header.Set("X-User-Role", c.GetString("role"))
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to communicate with "+sc.name+" service")
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to read response")
		return
	}

	for key, values := range resp.Header {
		if key == "Content-Length" {
			continue
		}
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

func (scs *ServiceClients) all() []*ServiceClient {
	return []*ServiceClient{scs.AuthService, scs.MembersService, scs.RentalService, scs.NotifierService, scs.RetryConsumer}
}

// GetServiceStatus checks every service concurrently
func (scs *ServiceClients) GetServiceStatus(ctx context.Context) (map[string]interface{}, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		status  = make(map[string]interface{})
	)
	for _, sc := range scs.all() {
		wg.Add(1)
		go func(sc *ServiceClient) {
			defer wg.Done()
			entry := map[string]interface{}{"healthy": true}
			err := sc.HealthCheck(ctx)
			if err != nil {
				entry = map[string]interface{}{"healthy": false, "error": err.Error()}
			}

			mu.Lock()
			defer mu.Unlock()
			status[sc.name+"_service"] = entry
			if err != nil {
				healthy = false
			}
		}(sc)
	}
	wg.Wait()

	return status, healthy
}
