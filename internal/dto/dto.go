package dto

// PaymentIntakeRequest is the untrusted intake body. Number fields are
// pointers so a missing value is distinguishable from zero.
type PaymentIntakeRequest struct {
	Amount          *float64 `json:"amount"`
	Currency        string   `json:"currency"`
	EventID         string   `json:"eventId"`
	Quantity        *float64 `json:"quantity"`
	UserEmail       string   `json:"userEmail"`
	UserID          string   `json:"userId"`
	PaymentMethodID string   `json:"paymentMethodId"`
}

type PaymentIntakeResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"`
}

// WebhookEnvelope is decoded only after the signature is verified. Data stays
// loosely typed until its shape is checked.
type WebhookEnvelope struct {
	ID   string      `json:"id"`
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type WebhookResponse struct {
	Received bool   `json:"received"`
	Status   string `json:"status,omitempty"`
}

type ScanRequest struct {
	QRData  string `json:"qrData"`
	EventID string `json:"eventId"`
}

type ScanResponse struct {
	Success  bool   `json:"success"`
	Result   string `json:"result"`
	Reason   string `json:"reason"`
	TicketID string `json:"ticketId,omitempty"`
}

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}
