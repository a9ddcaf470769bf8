// Package models contains the GORM persistence models for the billing tables.
// They are kept apart from the domain entities so the domain stays free of
// ORM tags; each model converts to and from its entity.
//
//   - base.go: shared id, audit and pharmacy/version columns
//   - client.go: clients
//   - transaction.go: transactions and transaction_sequences
package models
