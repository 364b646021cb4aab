package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const WelcomeMessage = "Welcome to the Multilingual Loan Advisor!"

// Pinger is satisfied by *sql.DB and the SQLite session store.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	Stores    map[string]Pinger
	RabbitMQ  *amqp091.Connection
	Services  map[string]bool // collaborator name -> configured
	StartTime time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

func NewHealthHandler(stores map[string]Pinger, rabbitMQ *amqp091.Connection, services map[string]bool) *HealthHandler {
	return &HealthHandler{
		Stores:    stores,
		RabbitMQ:  rabbitMQ,
		Services:  services,
		StartTime: time.Now(),
	}
}

func (h *HealthHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(WelcomeMessage))
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]string)
	healthy := true

	for name, store := range h.Stores {
		if err := store.PingContext(ctx); err != nil {
			deps[name] = fmt.Sprintf("unhealthy: %v", err)
			healthy = false
		} else {
			deps[name] = "healthy"
		}
	}

	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
			healthy = false
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	for name, configured := range h.Services {
		if configured {
			deps[name] = "configured"
		} else {
			deps[name] = "not configured"
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}

	resp := HealthResponse{
		Status:       status,
		Version:      "1.0.0",
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}
