package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/application/dto"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

// CashHandler expone cajas, sesiones, movimientos y conciliación (protegido).
type CashHandler struct {
	registers *cashdrawer.RegisterUseCase
	lifecycle *cashdrawer.LifecycleUseCase
	recon     *cashdrawer.ReconciliationUseCase
	log       zerolog.Logger
}

// NewCashHandler construye el handler.
func NewCashHandler(
	registers *cashdrawer.RegisterUseCase,
	lifecycle *cashdrawer.LifecycleUseCase,
	recon *cashdrawer.ReconciliationUseCase,
	log zerolog.Logger,
) *CashHandler {
	return &CashHandler{registers: registers, lifecycle: lifecycle, recon: recon, log: log}
}

// Create godoc
// @Summary      Crear caja registradora
// @Tags         cash-registers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCashRegisterRequest  true  "Datos de la caja"
// @Success      201   {object}  dto.CashRegisterResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Router       /api/cash-registers [post]
func (h *CashHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCashRegisterRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	reg, err := h.registers.Create(c.UserContext(), scopeFrom(c), cashdrawer.CreateRegisterInput{
		Name:     in.Name,
		BranchID: in.BranchID,
		Currency: in.Currency,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toRegisterResponse(reg))
}

// List godoc
// @Summary      Listar cajas registradoras
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Filtrar por sucursal"
// @Param        limit      query  int     false  "Límite"   default(20)
// @Param        offset     query  int     false  "Offset"   default(0)
// @Success      200        {object}  dto.CashRegisterListResponse
// @Router       /api/cash-registers [get]
func (h *CashHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	regs, err := h.registers.List(c.UserContext(), scopeFrom(c), c.Query("branch_id"), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]dto.CashRegisterResponse, 0, len(regs))
	for _, r := range regs {
		items = append(items, toRegisterResponse(r))
	}
	return c.JSON(dto.CashRegisterListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	})
}

// Get godoc
// @Summary      Estado y saldo de una caja
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la caja"
// @Success      200  {object}  dto.CashRegisterResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id} [get]
func (h *CashHandler) Get(c *fiber.Ctx) error {
	reg, err := h.registers.Get(c.UserContext(), scopeFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toRegisterResponse(reg))
}

// Delete godoc
// @Summary      Eliminar caja sin historial
// @Tags         cash-registers
// @Security     Bearer
// @Param        id   path  string  true  "ID de la caja"
// @Success      204
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id} [delete]
func (h *CashHandler) Delete(c *fiber.Ctx) error {
	if err := h.registers.Delete(c.UserContext(), scopeFrom(c), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Open godoc
// @Summary      Abrir caja con fondo inicial
// @Tags         cash-registers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la caja"
// @Param        body  body  dto.OpenCashRegisterRequest  true  "Fondo inicial"
// @Success      201   {object}  dto.CashSessionResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id}/open [post]
func (h *CashHandler) Open(c *fiber.Ctx) error {
	var in dto.OpenCashRegisterRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	s, err := h.lifecycle.Open(c.UserContext(), scopeFrom(c), c.Params("id"), GetUserID(c), *in.OpeningBalance)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(s))
}

// Close godoc
// @Summary      Cerrar caja (arqueo)
// @Description  Calcula el saldo desde el libro, lo compara con el conteo declarado y sella la sesión.
// @Tags         cash-registers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                        true   "ID de la caja"
// @Param        body  body  dto.CloseCashRegisterRequest  false  "Conteo declarado y retiro"
// @Success      200   {object}  dto.ClosingReportResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id}/close [post]
func (h *CashHandler) Close(c *fiber.Ctx) error {
	var in dto.CloseCashRegisterRequest
	if len(c.Body()) > 0 {
		if ok, err := bindAndValidate(c, &in); !ok {
			return err
		}
	}
	report, err := h.lifecycle.Close(c.UserContext(), scopeFrom(c), c.Params("id"), GetUserID(c), cashdrawer.CloseInput{
		DeclaredBalance: in.DeclaredBalance,
		Withdrawal:      in.Withdrawal,
		Notes:           in.Notes,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toClosingReportResponse(report))
}

// PostMovement godoc
// @Summary      Registrar movimiento (venta, gasto o ajuste)
// @Description  SALE positivo, EXPENSE negativo. MANUAL_ADJUSTMENT solo admin o supervisor.
// @Tags         cash-registers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                       true  "ID de la caja"
// @Param        body  body  dto.PostCashMovementRequest  true  "Movimiento"
// @Success      201   {object}  dto.CashMovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id}/movements [post]
func (h *CashHandler) PostMovement(c *fiber.Ctx) error {
	var in dto.PostCashMovementRequest
	if ok, err := bindAndValidate(c, &in); !ok {
		return err
	}
	if in.Kind == entity.CashMovementManualAdjustment && !hasRole(GetRole(c), RoleAdmin, RoleSupervisor) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo admin o supervisor pueden registrar ajustes"})
	}
	m, err := h.lifecycle.PostMovement(c.UserContext(), scopeFrom(c), cashdrawer.PostMovementInput{
		RegisterID:  c.Params("id"),
		ActorID:     GetUserID(c),
		Kind:        in.Kind,
		Amount:      *in.Amount,
		ReferenceID: strings.TrimSpace(in.ReferenceID),
		Note:        in.Note,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(m))
}

// ListSessions godoc
// @Summary      Historial de sesiones de una caja
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la caja"
// @Param        limit   query  int     false  "Límite"   default(20)
// @Param        offset  query  int     false  "Offset"   default(0)
// @Success      200     {object}  dto.CashSessionListResponse
// @Router       /api/cash-registers/{id}/sessions [get]
func (h *CashHandler) ListSessions(c *fiber.Ctx) error {
	limit, offset := pageParams(c)
	sessions, total, err := h.registers.ListSessions(c.UserContext(), scopeFrom(c), c.Params("id"), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]dto.CashSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, toSessionResponse(s))
	}
	return c.JSON(dto.CashSessionListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset, Total: total},
	})
}

// GetSession godoc
// @Summary      Sesión de caja (incluye el reporte de cierre si está sellada)
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id         path  string  true  "ID de la caja"
// @Param        sessionId  path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CashSessionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/cash-registers/{id}/sessions/{sessionId} [get]
func (h *CashHandler) GetSession(c *fiber.Ctx) error {
	s, err := h.registers.GetSession(c.UserContext(), scopeFrom(c), c.Params("id"), c.Params("sessionId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toSessionResponse(s))
}

// ListMovements godoc
// @Summary      Movimientos de una sesión en orden de inserción
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id         path  string  true  "ID de la caja"
// @Param        sessionId  path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.CashMovementListResponse
// @Router       /api/cash-registers/{id}/sessions/{sessionId}/movements [get]
func (h *CashHandler) ListMovements(c *fiber.Ctx) error {
	registerID, sessionID := c.Params("id"), c.Params("sessionId")
	movs, err := h.recon.ListMovements(c.UserContext(), scopeFrom(c), registerID, sessionID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	items := make([]dto.CashMovementResponse, 0, len(movs))
	for _, m := range movs {
		items = append(items, toMovementResponse(m))
	}
	return c.JSON(dto.CashMovementListResponse{
		RegisterID: registerID,
		SessionID:  sessionID,
		Items:      items,
		Count:      len(items),
	})
}

// Reconcile godoc
// @Summary      Conciliar libro contra saldo guardado
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id         path  string  true  "ID de la caja"
// @Param        sessionId  path  string  true  "ID de la sesión"
// @Success      200  {object}  dto.ReconciliationResponse
// @Router       /api/cash-registers/{id}/sessions/{sessionId}/reconciliation [get]
func (h *CashHandler) Reconcile(c *fiber.Ctx) error {
	rec, err := h.recon.Reconcile(c.UserContext(), scopeFrom(c), c.Params("id"), c.Params("sessionId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(toReconciliationResponse(rec))
}

// Repair godoc
// @Summary      Reparar el saldo guardado desde el libro
// @Tags         cash-registers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la caja"
// @Success      200  {object}  dto.CashRepairResponse
// @Router       /api/cash-registers/{id}/repair [post]
func (h *CashHandler) Repair(c *fiber.Ctx) error {
	res, err := h.recon.Repair(c.UserContext(), scopeFrom(c), c.Params("id"), GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := dto.CashRepairResponse{
		ReconciliationResponse: toReconciliationResponse(&res.Reconciliation),
		Repaired:               res.Repaired,
	}
	if res.Movement != nil {
		out.MovementID = res.Movement.ID
	}
	return c.JSON(out)
}
