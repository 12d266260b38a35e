package dto

// CreateSessionRequest is the request body for opening a payment session.
// Amount is a decimal BCH string to avoid float rounding on the wire.
type CreateSessionRequest struct {
	Amount string `json:"amount" binding:"required"`
}

// SessionResponse is the response body for a created session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Paid      bool   `json:"paid"`
	CreatedAt string `json:"created_at"`
}

// StatusRequest is the request body for polling a session. Exactly one of
// session_id or address identifies the session.
type StatusRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// StatusResponse is the response body for a status poll.
type StatusResponse struct {
	SessionID string `json:"session_id"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Paid      bool   `json:"paid"`
}

// AdminLoginRequest is the request body for the dashboard login.
type AdminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse is the response body for a successful login.
type AdminLoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// StatsResponse is the response for dashboard statistics.
type StatsResponse struct {
	TotalSessions   int64   `json:"total_sessions"`
	PaidSessions    int64   `json:"paid_sessions"`
	PendingSessions int64   `json:"pending_sessions"`
	TotalRevenue    string  `json:"total_revenue"` // decimal BCH
	ConversionRate  float64 `json:"conversion_rate"`
}

// SessionListResponse wraps a paginated session list.
type SessionListResponse struct {
	Items      []SessionResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// ModeRequest is the request body for switching the confirmation mode.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required,oneof=live test"`
}

// ModeResponse reports the active confirmation mode.
type ModeResponse struct {
	Mode string `json:"mode"`
}
