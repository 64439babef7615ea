package services

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidationError rejects caller input before any write or gateway call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

// ConfigurationError means the tenant has no usable gateway or webhook setup.
// Callers treat it as the feature being disabled.
type ConfigurationError struct {
	TenantID uuid.UUID
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("tenant %s not configured: %s", e.TenantID, e.Reason)
}

// AuthError means no gateway token could be obtained.
type AuthError struct {
	TenantID uuid.UUID
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gateway token unavailable for tenant %s", e.TenantID)
}

// GatewayError is a non-2xx or transport failure from the provider.
type GatewayError struct {
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gateway %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("gateway %s returned %d: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// StorageError is a local persistence failure.
type StorageError struct {
	Operation string
	Err       error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Operation, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// MirrorError reports a remote object that was created but could not be
// recorded locally. ProviderID is what the reconciler keys on.
type MirrorError struct {
	Kind       string
	ProviderID string
	Err        error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("%s %s created at gateway but not stored locally: %v", e.Kind, e.ProviderID, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return &StorageError{Operation: "mirror " + e.Kind, Err: e.Err}
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
