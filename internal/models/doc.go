// Package models defines the core domain models for splitpay.
//
// # Local models
//
// These are owned by this service and persisted in SQLite:
//   - Bill: a collection request with a goal, owned by one user
//   - Participant: a person expected to pay a share of a Bill
//   - Channel: a till/paybill destination a user can mark as default
//   - User: a registered account
//
// # External models
//
// These belong to the payments platform and are only ever read:
//   - PaymentAttempt: one mobile-money prompt and its outcome
//   - ExternalAccount: the platform's view of a bill (keyed by slug)
//
// # Design Principles
//
//  1. Money is decimal.Decimal, never float64
//  2. Relationships are ID strings, not pointers
//  3. The Bill row doubles as the ownership mirror: slug -> owner, name, goal
package models
