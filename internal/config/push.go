package config

type PushConfig struct {
	Provider            string `yaml:"provider"`
	FCMCredentialsFile  string `yaml:"fcm_credentials_file"`
	NotificationsEnable bool   `yaml:"notifications_enable"`
}

func loadPushConfig() *PushConfig {
	return &PushConfig{
		Provider:            getEnv("PUSH_PROVIDER", "fcm"),
		FCMCredentialsFile:  getEnv("FCM_CREDENTIALS_FILE", ""),
		NotificationsEnable: getEnvAsBool("PUSH_NOTIFICATIONS_ENABLE", true),
	}
}
