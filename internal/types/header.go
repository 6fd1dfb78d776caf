package types

const (
	HeaderRequestID = "X-Request-ID"

	// Recharge headers
	HeaderRechargeAccessToken = "X-Recharge-Access-Token"
	HeaderRechargeHmacSHA256  = "X-Recharge-Hmac-Sha256"
	HeaderRechargeTopic       = "X-Recharge-Topic"
)
