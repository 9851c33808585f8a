package repositories

// Repositories bundles all repository implementations for dependency wiring
type Repositories struct {
	Networks      NetworkRepository
	NetworkLimits NetworkLimitRepository
	ExternalUsers ExternalUserRepository
	UsageCounters UsageCounterRepository
	RequestLogs   RequestLogRepository
	ClientApps    ClientApplicationRepository
}
