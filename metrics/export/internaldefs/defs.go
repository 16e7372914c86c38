package internaldefs

import (
	goContacts "github.com/MrEthical07/goContacts"
)

// CounterDef names one engine counter for every exporter.
type CounterDef struct {
	ID   goContacts.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for every exporter.
type HistogramDef struct {
	ID   goContacts.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: goContacts.MetricRegisterSuccess, Name: "contacts_register_success_total", Help: "Successful registrations."},
	{ID: goContacts.MetricRegisterDuplicate, Name: "contacts_register_duplicate_total", Help: "Registrations rejected for a taken email or username."},
	{ID: goContacts.MetricConfirmSuccess, Name: "contacts_confirm_success_total", Help: "Email addresses confirmed."},
	{ID: goContacts.MetricConfirmAlreadyVerified, Name: "contacts_confirm_already_verified_total", Help: "Confirmations of already verified identities."},
	{ID: goContacts.MetricConfirmFailure, Name: "contacts_confirm_failure_total", Help: "Confirmations rejected for a bad token."},
	{ID: goContacts.MetricVerificationResend, Name: "contacts_verification_resend_total", Help: "Verification emails sent again on request."},
	{ID: goContacts.MetricLoginSuccess, Name: "contacts_login_success_total", Help: "Successful logins."},
	{ID: goContacts.MetricLoginFailure, Name: "contacts_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: goContacts.MetricLoginNotVerified, Name: "contacts_login_not_verified_total", Help: "Logins rejected for an unconfirmed email."},
	{ID: goContacts.MetricLoginRateLimited, Name: "contacts_login_rate_limited_total", Help: "Logins refused by the rate limiter."},
	{ID: goContacts.MetricPasswordRehash, Name: "contacts_password_rehash_total", Help: "Password hashes upgraded on login."},
	{ID: goContacts.MetricLogout, Name: "contacts_logout_total", Help: "Logouts."},
	{ID: goContacts.MetricRefreshSuccess, Name: "contacts_refresh_success_total", Help: "Access tokens refreshed."},
	{ID: goContacts.MetricRefreshFailure, Name: "contacts_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: goContacts.MetricPasswordResetRequest, Name: "contacts_password_reset_request_total", Help: "Password reset requests."},
	{ID: goContacts.MetricPasswordResetConfirmSuccess, Name: "contacts_password_reset_confirm_success_total", Help: "Successful password resets."},
	{ID: goContacts.MetricPasswordResetConfirmFailure, Name: "contacts_password_reset_confirm_failure_total", Help: "Failed password resets."},
	{ID: goContacts.MetricAuthorizeSuccess, Name: "contacts_authorize_success_total", Help: "Authorized requests."},
	{ID: goContacts.MetricAuthorizeUnauthenticated, Name: "contacts_authorize_unauthenticated_total", Help: "Requests rejected as unauthenticated."},
	{ID: goContacts.MetricAuthorizeForbidden, Name: "contacts_authorize_forbidden_total", Help: "Requests rejected for an insufficient role."},
	{ID: goContacts.MetricCacheHit, Name: "contacts_identity_cache_hit_total", Help: "Identity cache hits."},
	{ID: goContacts.MetricCacheMiss, Name: "contacts_identity_cache_miss_total", Help: "Identity cache misses."},
	{ID: goContacts.MetricCacheError, Name: "contacts_identity_cache_error_total", Help: "Identity cache backend failures."},
	{ID: goContacts.MetricLimiterError, Name: "contacts_rate_limiter_error_total", Help: "Rate limiter backend failures."},
	{ID: goContacts.MetricDeliveryFailure, Name: "contacts_delivery_failure_total", Help: "Notification emails that could not be sent."},
	{ID: goContacts.MetricAvatarUpdated, Name: "contacts_avatar_updated_total", Help: "Avatar updates."},
	{ID: goContacts.MetricRoleChanged, Name: "contacts_role_changed_total", Help: "Role changes."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goContacts.MetricAuthorizeLatency, Name: "contacts_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramBounds are the le labels of the engine latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets copies up to eight raw buckets into a fixed array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
