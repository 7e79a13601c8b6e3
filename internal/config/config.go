package config

type Config struct {
	BaseURL  string
	HttpPort int
	Db       struct {
		Dsn         string
		Automigrate bool
	}
	RedisServer string
	Jwt         struct {
		SecretKey string
	}
	Cron struct {
		// Secret guards the /cron endpoint; the platform scheduler sends it
		// as a bearer token.
		Secret string
		// OverdueSpec is the cron expression used by cmd/sweeper.
		OverdueSpec string
	}
	Notifications struct {
		Email string
	}
	Smtp struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	FileUploader struct {
		CloudName string
		ApiKey    string
		ApiSecret string
	}
	KafkaServers string
}
