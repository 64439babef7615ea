package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"reflect"
)

// JSONB represents PostgreSQL JSONB type
type JSONB map[string]interface{}

// ProviderMetadata carries gateway-specific data alongside a local row without
// dedicated columns. Raw holds anything the provider sent that has no typed field.
type ProviderMetadata struct {
	Provider              string `json:"provider,omitempty"`
	ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	PaymentURL            string `json:"payment_url,omitempty"`
	Simulated             bool   `json:"simulated,omitempty"`
	Raw                   JSONB  `json:"raw,omitempty"`
}

// Clone returns a copy that shares no map with m.
func (m ProviderMetadata) Clone() ProviderMetadata {
	out := m
	if m.Raw != nil {
		out.Raw = make(JSONB, len(m.Raw))
		for k, v := range m.Raw {
			out.Raw[k] = v
		}
	}
	return out
}

func (m ProviderMetadata) IsZero() bool {
	return m.Provider == "" && m.ProviderTransactionID == "" && m.PaymentURL == "" && !m.Simulated && len(m.Raw) == 0
}

// Merge copies the non-empty fields of other onto m.
func (m *ProviderMetadata) Merge(other ProviderMetadata) {
	if other.Provider != "" {
		m.Provider = other.Provider
	}
	if other.ProviderTransactionID != "" {
		m.ProviderTransactionID = other.ProviderTransactionID
	}
	if other.PaymentURL != "" {
		m.PaymentURL = other.PaymentURL
	}
	if other.Simulated {
		m.Simulated = true
	}
	for k, v := range other.Raw {
		if m.Raw == nil {
			m.Raw = JSONB{}
		}
		m.Raw[k] = v
	}
}

// Contains reports whether merging other into m would change nothing.
func (m ProviderMetadata) Contains(other ProviderMetadata) bool {
	if other.Provider != "" && other.Provider != m.Provider {
		return false
	}
	if other.ProviderTransactionID != "" && other.ProviderTransactionID != m.ProviderTransactionID {
		return false
	}
	if other.PaymentURL != "" && other.PaymentURL != m.PaymentURL {
		return false
	}
	if other.Simulated && !m.Simulated {
		return false
	}
	for k, v := range other.Raw {
		stored, ok := m.Raw[k]
		if !ok || !reflect.DeepEqual(stored, v) {
			return false
		}
	}
	return true
}

func (m ProviderMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *ProviderMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*m = ProviderMetadata{}
		return nil
	case []byte:
		if len(v) == 0 {
			*m = ProviderMetadata{}
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("provider metadata: unsupported source type")
	}
}
