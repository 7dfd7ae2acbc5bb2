package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stellarcompass/compass/pkg/validation"
)

func init() {
	// Horizon amounts are decimal strings; the dashboard expects bare numbers
	// (e.g. {"total_value": 123.45})
	decimal.MarshalJSONWithoutQuotes = true
}

// AssetBalance is one asset line of a portfolio, valued in USD.
type AssetBalance struct {
	Asset     string          `json:"asset" validate:"required,asset"`
	AssetType string          `json:"asset_type,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
	Value     decimal.Decimal `json:"value"`
}

// Portfolio is the per-request view of a Stellar account: balances with USD
// valuation plus the idle subset. Recomputed on every fetch, cached briefly.
type Portfolio struct {
	PublicKey  string          `json:"public_key" validate:"required,strkey"`
	TotalValue decimal.Decimal `json:"total_value"`
	Assets     []AssetBalance  `json:"assets"`
	IdleAssets []AssetBalance  `json:"idle_assets"`
	Sequence   string          `json:"sequence,omitempty"`
	FetchedAt  int64           `json:"fetched_at,omitempty"` // ms since epoch
}

// Validate validates the Portfolio struct
func (p Portfolio) Validate() error {
	if errors := validation.ValidateStruct(p); len(errors) > 0 {
		return errors
	}
	return nil
}

// ToJSON serializes for the snapshot cache
func (p Portfolio) ToJSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %w", err)
	}
	return string(data), nil
}

// PortfolioFromJSON restores a cached snapshot
func PortfolioFromJSON(data string) (Portfolio, error) {
	var p Portfolio
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return p, fmt.Errorf("json unmarshal error: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("validation failed: %w", err)
	}
	return p, nil
}

// Opportunity is a yield opportunity matched to a holding.
type Opportunity struct {
	Protocol    string          `json:"protocol" validate:"required,protocol"`
	Asset       string          `json:"asset" validate:"required,asset"`
	Type        string          `json:"type" validate:"required"`
	Risk        string          `json:"risk" validate:"required,risk"`
	APY         float64         `json:"apy" validate:"apy"`
	TVL         decimal.Decimal `json:"tvl"`
	Description string          `json:"description"`
	Action      string          `json:"action"`
}

// Validate validates the Opportunity struct
func (o Opportunity) Validate() error {
	if errors := validation.ValidateStruct(o); len(errors) > 0 {
		return errors
	}
	return nil
}

// Alert priorities, lowest to highest.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Alert types emitted by the API and the monitor agents.
const (
	AlertWalletConnected  = "wallet_connected"
	AlertPortfolioSummary = "portfolio_summary"
	AlertOpportunities    = "opportunities_found"
	AlertIdleAsset        = "idle_asset"
	AlertAPYSpike         = "apy_spike"
	AlertPriceMove        = "price_movement"
	AlertRebalance        = "rebalance"
	AlertRisk             = "risk_alert"
	AlertTest             = "test"
)

// Alert is one event on the alert stream. The notifier and the websocket
// fan-out both consume this shape.
type Alert struct {
	ID        string `json:"id"`
	Type      string `json:"type" validate:"required"`
	Priority  string `json:"priority" validate:"required,priority"`
	Wallet    string `json:"wallet,omitempty"`
	Title     string `json:"title" validate:"required"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Timestamp int64  `json:"timestamp" validate:"required"` // ms since epoch
}

// NewAlert stamps ID and timestamp.
func NewAlert(alertType, priority, wallet, title, message, action string) Alert {
	return Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		Priority:  priority,
		Wallet:    wallet,
		Title:     title,
		Message:   message,
		Action:    action,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Validate validates the Alert struct
func (a Alert) Validate() error {
	if errors := validation.ValidateStruct(a); len(errors) > 0 {
		return errors
	}
	return nil
}

// Sanitize cleans free-text fields before they reach templates or SMS
func (a *Alert) Sanitize() {
	a.Title = validation.SanitizeString(a.Title)
	a.Message = validation.SanitizeString(a.Message)
	a.Action = validation.SanitizeString(a.Action)
}

// ToMap converts Alert to a map for Redis stream storage
func (a Alert) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"id":       a.ID,
		"type":     a.Type,
		"priority": a.Priority,
		"wallet":   a.Wallet,
		"title":    a.Title,
		"message":  a.Message,
		"action":   a.Action,
		"ts_ms":    a.Timestamp,
	}
}

// AlertFromMap attempts to parse a Redis XMessage .Values into an Alert.
// Returns an error if required fields are missing or malformed.
func AlertFromMap(m map[string]interface{}) (Alert, error) {
	var a Alert

	str := func(key string) string {
		if s, ok := m[key].(string); ok {
			return validation.SanitizeString(s)
		}
		return ""
	}
	a.ID = str("id")
	a.Type = str("type")
	a.Priority = str("priority")
	a.Wallet = str("wallet")
	a.Title = str("title")
	a.Message = str("message")
	a.Action = str("action")

	// Timestamp (string or numeric, ms since epoch)
	switch v := m["ts_ms"].(type) {
	case string:
		var ts int64
		if _, err := fmt.Sscanf(v, "%d", &ts); err != nil {
			return a, fmt.Errorf("timestamp parse error: %w", err)
		}
		a.Timestamp = ts
	case int64:
		a.Timestamp = v
	case float64:
		a.Timestamp = int64(v)
	default:
		return a, fmt.Errorf("missing or invalid 'ts_ms'")
	}

	if err := a.Validate(); err != nil {
		return a, fmt.Errorf("validation failed: %w", err)
	}
	return a, nil
}

// ToJSON converts to JSON string for pub/sub
func (a Alert) ToJSON() (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("json marshal error: %w", err)
	}
	return string(data), nil
}

// AlertFromJSON creates Alert from JSON string
func AlertFromJSON(data string) (Alert, error) {
	var a Alert
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return a, fmt.Errorf("json unmarshal error: %w", err)
	}
	a.Sanitize()
	if err := a.Validate(); err != nil {
		return a, fmt.Errorf("validation failed: %w", err)
	}
	return a, nil
}

// ConnectRequest is the body of POST /api/wallet/connected.
type ConnectRequest struct {
	PublicKey  string `json:"public_key" validate:"required,strkey"`
	WalletType string `json:"wallet_type,omitempty"`
}

// Validate validates the ConnectRequest struct
func (r ConnectRequest) Validate() error {
	if errors := validation.ValidateStruct(r); len(errors) > 0 {
		return errors
	}
	return nil
}

// Sanitize cleans the request fields
func (r *ConnectRequest) Sanitize() {
	r.PublicKey = validation.SanitizeString(r.PublicKey)
	r.WalletType = validation.SanitizeString(r.WalletType)
	if r.WalletType == "" {
		r.WalletType = "manual"
	}
}

// Settings holds the user-adjustable notification preferences.
type Settings struct {
	PhoneNumber        string `json:"phone_number,omitempty"`
	RiskTolerance      string `json:"risk_tolerance,omitempty"`
	EmailNotifications *bool  `json:"email_notifications,omitempty"`
	SMSNotifications   *bool  `json:"sms_notifications,omitempty"`
	PushNotifications  *bool  `json:"push_notifications,omitempty"`
}
