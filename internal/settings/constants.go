package settings

// DB config keys and defaults for ledger settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Payda"
	// MerchantDailyLimitKey sets the daily cap for newly created merchant earnings rows.
	MerchantDailyLimitKey = "MERCHANT_DAILY_LIMIT"
	// DefaultMerchantDailyLimit is the fallback merchant daily cap.
	DefaultMerchantDailyLimit = 2000
	// AutoDonationIntervalSecondsKey controls how often the background runner replays rules.
	AutoDonationIntervalSecondsKey = "AUTO_DONATION_INTERVAL_SECONDS"
	// DefaultAutoDonationIntervalSeconds disables the background runner; rules run on demand.
	DefaultAutoDonationIntervalSeconds = 0
	// IdempotencyTTLSecondsKey controls how long replayable responses are kept.
	IdempotencyTTLSecondsKey = "IDEMPOTENCY_TTL_SECONDS"
	// DefaultIdempotencyTTLSeconds is the fallback replay window.
	DefaultIdempotencyTTLSeconds = 86400
)
