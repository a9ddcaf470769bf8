package router

import (
	"github.com/pharmabill/backend/internal/interfaces/http/handler"
)

// NewClientRoutes maps the client account endpoints
func NewClientRoutes(h *handler.ClientHandler) *DomainGroup {
	return NewDomainGroup("clients", "/clients").
		POST("", h.Create).
		GET("", h.List).
		GET("/by-phone/:phone", h.GetByPhone).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		DELETE("/:id", h.Delete).
		GET("/:id/balance", h.GetBalance).
		PUT("/:id/credit-limit", h.UpdateCreditLimit).
		POST("/:id/suspend", h.Suspend).
		POST("/:id/reactivate", h.Reactivate).
		POST("/:id/close", h.Close)
}

// NewTransactionRoutes maps the ledger and invoice endpoints
func NewTransactionRoutes(h *handler.TransactionHandler) *DomainGroup {
	return NewDomainGroup("transactions", "/transactions").
		POST("", h.Create).
		GET("", h.List).
		GET("/pending", h.ListPending).
		GET("/by-number/:number", h.GetByNumber).
		GET("/:id", h.GetByID).
		POST("/:id/pay", h.MarkPaid).
		POST("/:id/cancel", h.Cancel).
		POST("/:id/invoice", h.Invoice)
}

// NewPaymentRoutes maps payment link creation and the gateway webhook
func NewPaymentRoutes(h *handler.PaymentHandler) *DomainGroup {
	dg := NewDomainGroup("payments", "")
	dg.Group("payment-links", "/transactions").
		POST("/:id/payment-link", h.CreatePaymentLink)
	dg.Group("payment-webhooks", "/payments").
		POST("/webhook", h.Webhook)
	return dg
}

// NewSystemRoutes maps the informational endpoints served under the API prefix
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/health", h.Health)
}
