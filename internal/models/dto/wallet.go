package dto

type WithdrawRequest struct {
	Amount int64 `json:"amount" validate:"required,min=1"`
}

type SubscriptionStatusResponse struct {
	Subscribed bool  `json:"subscribed"`
	ExpiresAt  int64 `json:"expires_at,omitempty"` // unix millis
	Fee        int64 `json:"fee"`
}

// PaymentWebhookEvent is the subset of the Flutterwave charge event the
// subscription flow cares about.
type PaymentWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Status string `json:"status"`
		TxRef  string `json:"tx_ref"`
		Meta   struct {
			UserID int64 `json:"user_id"`
		} `json:"meta"`
	} `json:"data"`
}
