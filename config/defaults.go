package config

import (
	"github.com/spf13/viper"
)

// SetDefaults registers default values for all configuration keys
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "pacer.db")

	v.SetDefault("server.port", DefaultServerPort)

	v.SetDefault("scheduler.batch_limit", 50)
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.job_timeout_seconds", 300)
	v.SetDefault("scheduler.rate_per_second", 0)

	v.SetDefault("executors.timeout_seconds", 300)

	v.SetDefault("log.json", false)
}
