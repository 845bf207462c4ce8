package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/migrate"
)

// MigrateHandler exposes the migration endpoints: a credential check and the
// streaming import run.
type MigrateHandler struct {
	importer *migrate.Importer
}

// NewMigrateHandler constructs a migration handler.
func NewMigrateHandler(db *gorm.DB) (*MigrateHandler, error) {
	importer, err := migrate.NewImporter(db)
	if err != nil {
		return nil, err
	}
	return &MigrateHandler{importer: importer}, nil
}

type migrateRequest struct {
	migrate.Credentials
	Entities *migrate.Selection `json:"entities"`
}

// Test mints a partner assertion and probes the vendor API with it. This is
// the only migration call that fails hard on bad credentials. Responses are
// flat {success, user} / {success, error} rather than the usual envelope; the
// migration UI reads them verbatim, vendor error string included.
func (h *MigrateHandler) Test(c *gin.Context) {
	var payload migrateRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	user, err := h.importer.TestConnection(requestContext(c), payload.Credentials)
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *migrate.APIError
		if !errors.As(err, &apiErr) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

// Start runs the migration pipeline, streaming progress as server-sent
// events. The stream always ends with a terminal complete event; per-entity
// failures arrive as entity_error events in between.
func (h *MigrateHandler) Start(c *gin.Context) {
	var payload migrateRequest
	if !bindAndValidate(c, &payload) {
		return
	}

	selection := migrate.Selection{
		User: true, Accounts: true, Transactions: true,
		Budgets: true, Goals: true, Alerts: true, Tags: true,
	}
	if payload.Entities != nil {
		selection = *payload.Entities
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	flusher, _ := c.Writer.(http.Flusher)
	emit := func(event migrate.Event) {
		writeSSE(c.Writer, event)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := h.importer.Run(requestContext(c), payload.Credentials, selection, emit); err != nil {
		// Run only errors before the first stage (assertion minting); surface
		// it on the stream so the client sees a terminal state either way.
		emit(migrate.Event{Status: migrate.StatusEntityError, Error: err.Error()})
		emit(migrate.Event{Status: migrate.StatusComplete})
	}
}

func writeSSE(w io.Writer, event migrate.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}
