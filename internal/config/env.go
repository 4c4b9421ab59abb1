package config

// Environment variables that override file settings.
const (
	EnvRestaurant    = "OFFPOS_RESTAURANT"
	EnvDatabase      = "OFFPOS_DB"
	EnvRemoteURL     = "OFFPOS_REMOTE_URL"
	EnvRemoteToken   = "OFFPOS_REMOTE_TOKEN"
	EnvRemoteTimeout = "OFFPOS_REMOTE_TIMEOUT"
	EnvSyncInterval  = "OFFPOS_SYNC_INTERVAL"
	EnvReadPolicy    = "OFFPOS_READ_POLICY"
	EnvDeletePolicy  = "OFFPOS_DELETE_POLICY"
	EnvTimezone      = "OFFPOS_TIMEZONE"
	EnvExportDir     = "OFFPOS_EXPORT_DIR"
	EnvGSTIN         = "OFFPOS_GSTIN"
	EnvServerAddr    = "OFFPOS_SERVER_ADDR"
	EnvLogLevel      = "OFFPOS_LOG_LEVEL"
	EnvLogEncoding   = "OFFPOS_LOG_ENCODING"
)

type lookupFunc func(key string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	set(EnvRestaurant, &cfg.Restaurant)
	set(EnvDatabase, &cfg.Database.Path)
	set(EnvRemoteURL, &cfg.Remote.BaseURL)
	set(EnvRemoteToken, &cfg.Remote.Token)
	set(EnvRemoteTimeout, &cfg.Remote.Timeout)
	set(EnvSyncInterval, &cfg.Sync.Interval)
	set(EnvReadPolicy, &cfg.Sync.ReadPolicy)
	set(EnvDeletePolicy, &cfg.Ledger.DeletePolicy)
	set(EnvTimezone, &cfg.Report.Timezone)
	set(EnvExportDir, &cfg.Report.ExportDir)
	set(EnvGSTIN, &cfg.Report.GSTIN)
	set(EnvServerAddr, &cfg.Server.Addr)
	set(EnvLogLevel, &cfg.Log.Level)
	set(EnvLogEncoding, &cfg.Log.Encoding)
}
