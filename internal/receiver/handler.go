// Package receiver implements the persistence endpoint: it accepts submission
// payloads over HTTP and appends their rows to the sheet store.
package receiver

import (
	"context"
	"encoding/json"
	"strings"

	"prefsurvey/internal/logging"
	"prefsurvey/internal/store"
	"prefsurvey/internal/submit"

	"github.com/gofiber/fiber/v2"
)

const savedMessage = "Data saved successfully"

// Appender is the part of the sheet store the handler needs.
type Appender interface {
	Append(ctx context.Context, sheet string, rows []store.Row) (string, error)
}

// SheetRouting picks the destination sheet for a payload.
type SheetRouting struct {
	// ByForm maps a payload's formType to a sheet name.
	ByForm map[string]string
	// Default receives payloads whose formType is absent or unmapped.
	Default string
}

// Sheet returns the destination for formType.
func (r SheetRouting) Sheet(formType string) string {
	if name, ok := r.ByForm[strings.TrimSpace(formType)]; ok && name != "" {
		return name
	}
	return r.Default
}

// Reply is the acknowledgement body.
type Reply struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler serves the endpoint routes.
type Handler struct {
	store   Appender
	routing SheetRouting
	log     *logging.Logger
}

// NewHandler creates a handler writing to st.
func NewHandler(st Appender, routing SheetRouting) *Handler {
	return &Handler{
		store:   st,
		routing: routing,
		log:     logging.Get(logging.CategoryReceiver),
	}
}

// RegisterRoutes mounts the endpoint on r.
func (h *Handler) RegisterRoutes(r fiber.Router) {
	r.Post("/", h.Save)
	r.Options("/", h.Preflight)
	r.Get("/healthz", h.Health)
}

// Save appends every entry of the payload as one batch.
//
// The body is parsed as JSON whatever the Content-Type: browsers posting in
// no-cors mode downgrade it to text/plain.
func (h *Handler) Save(c *fiber.Ctx) error {
	var p submit.Payload
	if err := json.Unmarshal(c.Body(), &p); err != nil {
		h.log.Warn("rejected payload from %s: %v", c.IP(), err)
		return c.Status(fiber.StatusBadRequest).JSON(Reply{Error: "invalid JSON payload: " + err.Error()})
	}
	if p.Responses == nil {
		h.log.Warn("rejected payload from %s: no responses", c.IP())
		return c.Status(fiber.StatusBadRequest).JSON(Reply{Error: "payload has no responses"})
	}

	sheet := h.routing.Sheet(p.FormType)
	rows := make([]store.Row, len(p.Responses))
	for i, e := range p.Responses {
		rows[i] = store.Row{
			Email:             p.Email,
			Question:          e.Question,
			PreferredResponse: e.PreferredResponse,
			ModelUsed:         e.PreferredModel,
			WorkflowState:     store.WorkflowState(e.Sheet),
		}
	}

	batch, err := h.store.Append(c.UserContext(), sheet, rows)
	if err != nil {
		h.log.Error("append to %q failed: %v", sheet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(Reply{Error: err.Error()})
	}
	h.log.Info("saved %d rows for %s to %q (batch %s)", len(rows), p.Email, sheet, batch)
	return c.JSON(Reply{Success: true, Message: savedMessage})
}

// Preflight answers OPTIONS requests the CORS middleware let through.
func (h *Handler) Preflight(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

// Health reports liveness.
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
