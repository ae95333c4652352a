// Package repository implements the SQL persistence layer: the
// engine's durable-store boundary (store.go) plus plain repositories
// for the auth and browse surfaces.  Sentinel values below let
// handlers distinguish failure scenarios without string matching;
// for example ErrForbidden indicates the caller does not own the
// resource they are mutating.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on
// a resource they do not own, e.g. creating a slot under someone
// else's activity.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is the base of conflicting-state failures such as
// ErrEmailExists; more specific errors wrap it so handlers can map
// the whole family to 409 with one errors.Is check.
var ErrConflict = errors.New("conflict")
