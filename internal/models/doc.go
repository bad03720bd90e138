// Package models defines the core domain models for fintrack.
//
// # Documents
//
// The backend service stores two document collections:
//   - users/{uid}: a UserProfile, written by the registration flow
//   - transactions/{id}: a Transaction owned by exactly one principal
//
// Account is the identity provider's credential record. It never leaves the
// backend; clients only ever see a Principal.
//
// # Design Principles
//
// 1. **Value types**: a Transaction held by a client is a copy of the backend document
// 2. **Sign by kind**: Amount is always positive, Type carries income or expense
// 3. **Local dates**: Date is a calendar date (YYYY-MM-DD) without timezone metadata
// 4. **IDs as strings**: relationships use principal IDs, never pointers
package models
