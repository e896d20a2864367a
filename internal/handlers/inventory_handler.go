package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"warehouse-service/internal/models"
	"warehouse-service/internal/services"
)

// InventoryHandler traspasos y ajustes manuales de batch items
type InventoryHandler struct {
	base
	transferService  services.TransferService
	batchItemService services.BatchItemService
}

func NewInventoryHandler(transferService services.TransferService, batchItemService services.BatchItemService, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		base:             newBase(logger),
		transferService:  transferService,
		batchItemService: batchItemService,
	}
}

func (h *InventoryHandler) ApproveTransfer(c *gin.Context) {
	transferID := c.Param("id")
	if err := h.transferService.Approve(c.Request.Context(), transferID, currentUser(c)); err != nil {
		h.fail(c, "Error aprobando traspaso", err)
		return
	}
	ok(c, http.StatusOK, "Traspaso aprobado", gin.H{"transfer_id": transferID})
}

func (h *InventoryHandler) AdjustBatchItem(c *gin.Context) {
	var body models.AdjustBatchItemRequest
	if !h.bind(c, &body) {
		return
	}

	item, err := h.batchItemService.Adjust(c.Request.Context(), c.Param("id"), body.QuantityChange)
	if err != nil {
		h.fail(c, "Error ajustando batch item", err)
		return
	}
	ok(c, http.StatusOK, "Cantidad ajustada", item)
}

type AdminHandler struct {
	base
	userService services.UserService
}

func NewAdminHandler(userService services.UserService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{base: newBase(logger), userService: userService}
}

// UpdateRole solo se monta detrás de RequireRole("admin")
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	var body models.UpdateUserRoleRequest
	if !h.bind(c, &body) {
		return
	}

	user, err := h.userService.UpdateRole(c.Request.Context(), currentUser(c), c.Param("id"), body.Role)
	if err != nil {
		h.fail(c, "Error actualizando rol", err)
		return
	}
	ok(c, http.StatusOK, "Rol actualizado", user)
}
