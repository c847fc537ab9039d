// Package domain contains core business types and interfaces.
//
// This file defines the Account and Payment records the plan resolver reads.
// These types are separate from the repository models so the resolver stays
// free of sql.Null* handling.
package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Account is the persisted record that owns a plan label and a usage counter.
type Account struct {
	ID               uuid.UUID
	Email            string
	Plan             string     // Raw plan label, e.g. "basic" or "premium"
	PremiumExpiry    *time.Time // Absent on accounts created before expiry tracking
	DownloadCount    int64
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PaymentStatus is the outcome recorded for a payment.
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusPending PaymentStatus = "pending"
)

// Payment is one entry of the authoritative payment ledger.
type Payment struct {
	ID           string
	AccountID    uuid.UUID
	Status       PaymentStatus
	BillingCycle string // Plan label the payment bought, e.g. "basic"
	AmountCents  int64
	Currency     string
	CreatedAt    time.Time
}

// Succeeded returns true if the payment completed.
func (p Payment) Succeeded() bool {
	return p.Status == PaymentStatusSuccess
}

// =============================================================================
// Conversion helpers from repository types
// =============================================================================

// NullStringValue safely extracts a string from sql.NullString.
func NullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// NullTimeValue safely extracts a time pointer from sql.NullTime.
func NullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// ToNullString converts a string to sql.NullString.
func ToNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToNullTime converts a time pointer to sql.NullTime.
func ToNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
