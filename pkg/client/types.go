package client

import "time"

// User represents an account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"full_name,omitempty"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthResponse carries a token pair and the user it was issued to
type AuthResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// MeResponse is the authenticated user with their subscription
type MeResponse struct {
	User         *User         `json:"user"`
	Subscription *Subscription `json:"subscription"`
}

// Subscription is the caller's subscription. CurrentTier is computed by the
// server at request time and is what gates features.
type Subscription struct {
	Tier              string     `json:"tier"`
	CurrentTier       string     `json:"current_tier"`
	Plan              string     `json:"plan,omitempty"`
	DaysRemaining     *int       `json:"days_remaining"`
	TrialStartedAt    *time.Time `json:"trial_started_at,omitempty"`
	TrialEndsAt       *time.Time `json:"trial_ends_at,omitempty"`
	TrialAvailable    bool       `json:"trial_available"`
	RenewalAt         *time.Time `json:"renewal_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	BonusDaysCredited int        `json:"bonus_days_credited"`
	Features          []string   `json:"features"`
}

// Plan is a purchasable billing period
type Plan struct {
	Name        string   `json:"name"`
	PeriodDays  int      `json:"period_days"`
	AmountMinor int64    `json:"amount_minor"`
	Currency    string   `json:"currency"`
	BonusDays   int      `json:"bonus_days"`
	Features    []string `json:"features"`
	IsCurrent   bool     `json:"is_current"`
}

// Plans lists plans with the trial offer
type Plans struct {
	TrialDays int    `json:"trial_days"`
	Plans     []Plan `json:"plans"`
}

// Document stages
const (
	StageUploaded     = "uploaded"
	StageSummarizing  = "summarizing"
	StageSummarized   = "summarized"
	StageAudioPending = "audio_pending"
	StageAudioReady   = "audio_ready"
	StageFailed       = "failed"
)

// Document is an uploaded PDF and its processing state
type Document struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	SizeBytes     int64     `json:"size_bytes"`
	Stage         string    `json:"stage"`
	HasSummary    bool      `json:"has_summary"`
	HasAudio      bool      `json:"has_audio"`
	FailureReason string    `json:"failure_reason,omitempty"`
	UploadedAt    time.Time `json:"uploaded_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary is a document's generated summary
type Summary struct {
	DocumentID string `json:"document_id"`
	Summary    string `json:"summary"`
}

// Decision is one gate outcome
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

// Entitlements lists the gate decisions for one document
type Entitlements struct {
	DocumentID string              `json:"document_id"`
	Decisions  map[string]Decision `json:"decisions"`
}

// Page is one page of a paginated list
type Page[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ListOptions selects a page
type ListOptions struct {
	Page     int
	PageSize int
}

// UserStats are the admin headline counts
type UserStats struct {
	TotalUsers      int            `json:"total_users"`
	SubscribedUsers int            `json:"subscribed_users"`
	ByTier          map[string]int `json:"by_tier"`
	ConversionRate  float64        `json:"conversion_rate"`
	TotalDocuments  int            `json:"total_documents"`
}

// UserSummary is one row of the admin user list
type UserSummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name,omitempty"`
	Tier          string    `json:"tier"`
	StoredTier    string    `json:"stored_tier"`
	DaysRemaining *int      `json:"days_remaining,omitempty"`
	DocumentCount int       `json:"document_count"`
	JoinedAt      time.Time `json:"joined_at"`
}

// AdminUsers is the filtered admin user list
type AdminUsers struct {
	Status string        `json:"status"`
	Total  int           `json:"total"`
	Users  []UserSummary `json:"users"`
}

// MonthRevenue is revenue captured in one calendar month
type MonthRevenue struct {
	Month        string `json:"month"`
	AmountMinor  int64  `json:"amount_minor"`
	PaymentCount int    `json:"payment_count"`
}

// RevenueReport is total revenue with a per-month breakdown
type RevenueReport struct {
	TotalMinor   int64          `json:"total_minor"`
	PaymentCount int            `json:"payment_count"`
	ByMonth      []MonthRevenue `json:"by_month"`
}

// Payment is one recorded payment
type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Reference   string    `json:"reference"`
	Plan        string    `json:"plan"`
	AmountMinor int64     `json:"amount_minor"`
	Currency    string    `json:"currency"`
	PaidAt      time.Time `json:"paid_at"`
}

// SignupMonth counts signups in one month and how many are subscribed now
type SignupMonth struct {
	Month      string `json:"month"`
	Signups    int    `json:"signups"`
	Subscribed int    `json:"subscribed"`
}

// Growth is the admin subscription growth view. SubscribedRate is in [0,1].
type Growth struct {
	TotalUsers      int           `json:"total_users"`
	SubscribedUsers int           `json:"subscribed_users"`
	TrialUsers      int           `json:"trial_users"`
	ActiveUsers     int           `json:"active_users"`
	SubscribedRate  float64       `json:"subscribed_rate"`
	ByMonth         []SignupMonth `json:"by_month"`
}

// SubscriptionStatus is a user's stored subscription with its current tier,
// as returned by the admin subscription endpoints
type SubscriptionStatus struct {
	Subscription  *Subscription `json:"subscription"`
	CurrentTier   string        `json:"current_tier"`
	DaysRemaining *int          `json:"days_remaining"`
}

// HealthResponse represents the readiness check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Storage  string `json:"storage"`
}
