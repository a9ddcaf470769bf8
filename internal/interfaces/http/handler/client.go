package handler

import (
	"github.com/gin-gonic/gin"
	billingapp "github.com/pharmabill/backend/internal/application/billing"
)

// ClientHandler handles client account endpoints
type ClientHandler struct {
	BaseHandler
	clientService *billingapp.ClientService
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(clientService *billingapp.ClientService) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
	}
}

// Create godoc
// @ID           createClient
// @Summary      Register a client
// @Description  Register a client of the pharmacy with an optional credit limit
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        request body billingapp.CreateClientRequest true "Client registration request"
// @Success      201 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients [post]
func (h *ClientHandler) Create(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	var req billingapp.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.CreatedBy = optionalUserID(c)

	client, err := h.clientService.Create(c.Request.Context(), pharmacyID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, client)
}

// List godoc
// @ID           listClients
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Param        search     query string false "Name, phone, email or tax id"
// @Param        status     query string false "active, suspended or closed"
// @Param        tag        query string false "Tag"
// @Param        owes_money query bool   false "Only clients with debt"
// @Param        page       query int    false "Page" default(1)
// @Param        page_size  query int    false "Page size" default(20)
// @Success      200 {object} dto.Response{data=[]billingapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients [get]
func (h *ClientHandler) List(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	var filter billingapp.ClientListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.clientService.List(c.Request.Context(), pharmacyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID godoc
// @ID           getClientById
// @Summary      Get client by ID
// @Tags         clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id} [get]
func (h *ClientHandler) GetByID(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(c.Request.Context(), pharmacyID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// GetByPhone godoc
// @ID           getClientByPhone
// @Summary      Find a client by phone number
// @Description  Any spelling of the number is accepted; it is normalized before the lookup
// @Tags         clients
// @Produce      json
// @Param        phone path string true "Phone number"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/by-phone/{phone} [get]
func (h *ClientHandler) GetByPhone(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}

	client, err := h.clientService.GetByPhone(c.Request.Context(), pharmacyID, c.Param("phone"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// GetBalance godoc
// @ID           getClientBalance
// @Summary      Get a client's account balance
// @Tags         clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.BalanceResponse}
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id}/balance [get]
func (h *ClientHandler) GetBalance(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	balance, err := h.clientService.GetBalance(c.Request.Context(), pharmacyID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, balance)
}

// Update godoc
// @ID           updateClient
// @Summary      Update a client's contact data
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path string                          true "Client ID" format(uuid)
// @Param        request body billingapp.UpdateClientRequest  true "Fields to change"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id} [put]
func (h *ClientHandler) Update(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	var req billingapp.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	client, err := h.clientService.UpdateContact(c.Request.Context(), pharmacyID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// UpdateCreditLimit godoc
// @ID           updateClientCreditLimit
// @Summary      Change a client's credit limit
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path string                               true "Client ID" format(uuid)
// @Param        request body billingapp.UpdateCreditLimitRequest  true "New limit"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id}/credit-limit [put]
func (h *ClientHandler) UpdateCreditLimit(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	var req billingapp.UpdateCreditLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	client, err := h.clientService.UpdateCreditLimit(c.Request.Context(), pharmacyID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Suspend godoc
// @ID           suspendClient
// @Summary      Suspend a client account
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path string                          true  "Client ID" format(uuid)
// @Param        request body billingapp.StatusChangeRequest  false "Reason"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id}/suspend [post]
func (h *ClientHandler) Suspend(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	req, ok := h.bindStatusChange(c)
	if !ok {
		return
	}

	client, err := h.clientService.Suspend(c.Request.Context(), pharmacyID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Reactivate godoc
// @ID           reactivateClient
// @Summary      Reactivate a suspended client
// @Tags         clients
// @Produce      json
// @Param        id path string true "Client ID" format(uuid)
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id}/reactivate [post]
func (h *ClientHandler) Reactivate(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	client, err := h.clientService.Reactivate(c.Request.Context(), pharmacyID, clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Close godoc
// @ID           closeClient
// @Summary      Close a client account
// @Description  Closing is final. Payments are refused afterwards.
// @Tags         clients
// @Accept       json
// @Produce      json
// @Param        id      path string                          true  "Client ID" format(uuid)
// @Param        request body billingapp.StatusChangeRequest  false "Reason"
// @Success      200 {object} dto.Response{data=billingapp.ClientResponse}
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id}/close [post]
func (h *ClientHandler) Close(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	req, ok := h.bindStatusChange(c)
	if !ok {
		return
	}

	client, err := h.clientService.Close(c.Request.Context(), pharmacyID, clientID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, client)
}

// Delete godoc
// @ID           deleteClient
// @Summary      Delete a client
// @Tags         clients
// @Param        id path string true "Client ID" format(uuid)
// @Success      204
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /clients/{id} [delete]
func (h *ClientHandler) Delete(c *gin.Context) {
	pharmacyID, ok := h.pharmacyOrAbort(c)
	if !ok {
		return
	}
	clientID, ok := h.idOrAbort(c, "id", "client")
	if !ok {
		return
	}

	if err := h.clientService.Delete(c.Request.Context(), pharmacyID, clientID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// bindStatusChange reads the optional reason body
func (h *ClientHandler) bindStatusChange(c *gin.Context) (billingapp.StatusChangeRequest, bool) {
	var req billingapp.StatusChangeRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return req, false
	}
	return req, true
}
