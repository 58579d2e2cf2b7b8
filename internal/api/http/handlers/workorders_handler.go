package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/auth"
	"github.com/fieldops/workorder-service/internal/domain"
	"github.com/fieldops/workorder-service/internal/repository"
	"github.com/fieldops/workorder-service/internal/service"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// WorkOrdersHandler manages work-order lifecycle endpoints.
type WorkOrdersHandler struct {
	lifecycle *service.LifecycleService
}

// NewWorkOrdersHandler constructs handler.
func NewWorkOrdersHandler(lifecycle *service.LifecycleService) *WorkOrdersHandler {
	return &WorkOrdersHandler{lifecycle: lifecycle}
}

// Create POST /workorders.
func (h *WorkOrdersHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateWorkOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	wo, err := h.lifecycle.CreateWorkOrder(c.UserContext(), principal.Actor(), service.IntakeInput{
		TipoSolicitud: req.TipoSolicitud,
		Titulo:        req.Titulo,
		Descripcion:   req.Descripcion,
		Prioridad:     req.Prioridad,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromWorkOrder(wo)})
}

// List GET /workorders.
func (h *WorkOrdersHandler) List(c *fiber.Ctx) error {
	filter := repository.WorkOrderFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	for _, raw := range splitQuery(c.Query("etapa")) {
		filter.Etapas = append(filter.Etapas, domain.Etapa(raw))
	}
	for _, raw := range splitQuery(c.Query("prioridad")) {
		filter.Prioridades = append(filter.Prioridades, domain.Prioridad(raw))
	}
	if tid := c.Query("technician_id"); tid != "" {
		filter.TechnicianID = &tid
	}

	orders, err := h.lifecycle.ListWorkOrders(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.WorkOrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, dto.FromWorkOrder(&orders[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /workorders/:id.
func (h *WorkOrdersHandler) Get(c *fiber.Ctx) error {
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	wo, err := h.lifecycle.GetWorkOrder(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWorkOrder(wo)})
}

// Transition POST /workorders/:id/transition.
func (h *WorkOrdersHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Etapa == "" {
		return apperrors.NewValidationError("etapa required", nil)
	}

	wo, err := h.lifecycle.Transition(c.UserContext(), principal.Actor(), id, service.TransitionInput{
		TargetEtapa:  req.Etapa,
		TechnicianID: req.TechnicianID,
		Nota:         req.Nota,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromWorkOrder(wo)})
}

// AddNote POST /workorders/:id/notes.
func (h *WorkOrdersHandler) AddNote(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	var req dto.NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	note, err := h.lifecycle.AddNote(c.UserContext(), principal.Actor(), id, req.Texto)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromNote(note)})
}

// ListNotes GET /workorders/:id/notes.
func (h *WorkOrdersHandler) ListNotes(c *fiber.Ctx) error {
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	notes, err := h.lifecycle.ListNotes(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, dto.FromNote(&notes[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /workorders/:id/history.
func (h *WorkOrdersHandler) ListHistory(c *fiber.Ctx) error {
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	history, err := h.lifecycle.ListHistory(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(history))
	for i := range history {
		items = append(items, dto.FromHistory(&history[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Sign POST /workorders/:id/signature.
func (h *WorkOrdersHandler) Sign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	var req dto.SignatureRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	sig, err := h.lifecycle.CloseWithSignature(c.UserContext(), principal.Actor(), id, service.SignatureInput{
		Payload:        req.Payload,
		NumeroRegistro: req.NumeroRegistro,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.FromSignature(sig)})
}

// GetSignature GET /workorders/:id/signature.
func (h *WorkOrdersHandler) GetSignature(c *fiber.Ctx) error {
	id, err := parseWorkOrderID(c)
	if err != nil {
		return err
	}
	sig, err := h.lifecycle.GetSignature(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSignature(sig)})
}

func parseWorkOrderID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid work order id", nil)
	}
	return id, nil
}

func splitQuery(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
