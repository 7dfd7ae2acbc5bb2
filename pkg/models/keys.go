package models

// Redis keys shared by the API, the agents and the notifier.
const (
	// AlertStream is the durable alert stream the notifier consumes.
	AlertStream = "alerts:stream"
	// AlertChannel is the pub/sub channel behind the websocket fan-out.
	AlertChannel = "alerts:live"
	// ConnectedWallets is the set of registered wallet addresses.
	ConnectedWallets = "connected:wallets"
	// SettingsKey is the hash holding notification preferences.
	SettingsKey = "settings"

	// AlertHistoryMax caps the per-wallet alert history list.
	AlertHistoryMax = 100
)

// AlertHistoryKey returns the per-wallet alert history list key.
func AlertHistoryKey(wallet string) string {
	return "alerts:history:" + wallet
}
