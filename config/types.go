package config

type Config struct {
	Debug   bool    `mapstructure:"debug"`
	Server  Server  `mapstructure:"server"`
	Auth    Auth    `mapstructure:"auth"`
	API     API     `mapstructure:"api"`
	Upload  Upload  `mapstructure:"upload"`
	Webp    Webp    `mapstructure:"webp"`
	Catalog Catalog `mapstructure:"catalog"`
	Backend Backend `mapstructure:"backend"`
	Cache   Cache   `mapstructure:"cache"`
}

type Server struct {
	Address string `mapstructure:"address" validate:"required,hostname|ip"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	// PublicDomain is the host files are published under; it forms the
	// prefix of every public file URL.
	PublicDomain string `mapstructure:"public_domain" validate:"required,hostname"`
}

type Auth struct {
	Enable      bool   `mapstructure:"enable"`
	Username    string `mapstructure:"username" validate:"required_if=Enable true"`
	Password    string `mapstructure:"password" validate:"required_if=Enable true"`
	SessionDays int    `mapstructure:"session_days" validate:"min=1"`
}

type API struct {
	// Key guards the /api routes. Leaving it empty disables the API surface.
	Key string `mapstructure:"key"`
}

type Upload struct {
	MaxSizeMB int `mapstructure:"max_size_mb" validate:"required,min=1"`
}

type Webp struct {
	Enable bool `mapstructure:"enable"`
	// Redirect selects the status used when an original URL redirects to
	// its webp variant. Both appear in the wild; treated as configuration.
	Redirect string `mapstructure:"redirect" validate:"required,oneof=temporary permanent"`
	Options  string `mapstructure:"options" validate:"required"`
}

type Catalog struct {
	Strategy string      `mapstructure:"strategy" validate:"required,oneof=sql d1 memory"`
	SQL      *SQLCatalog `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1       *D1Catalog  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLCatalog struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=mysql postgres"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type D1Catalog struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitempty,identifier"`
}

type Backend struct {
	Strategy string           `mapstructure:"strategy" validate:"required,oneof=telegram s3"`
	Telegram *TelegramBackend `mapstructure:"telegram" validate:"required_if=Strategy telegram"`
	S3       *S3Backend       `mapstructure:"s3" validate:"required_if=Strategy s3"`
}

type TelegramBackend struct {
	BotToken string `mapstructure:"bot_token" validate:"required"`
	ChatID   string `mapstructure:"chat_id" validate:"required"`
	// Endpoint overrides the Telegram API base URL, mainly for tests.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

type S3Backend struct {
	Endpoint    string `mapstructure:"endpoint"`
	AccessKeyID string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyID string `mapstructure:"secret_key_id" validate:"required"`
	Region      string `mapstructure:"region" validate:"required"`
	Bucket      string `mapstructure:"bucket" validate:"required"`
	Prefix      string `mapstructure:"prefix"`
}

type Cache struct {
	Entries       int `mapstructure:"entries" validate:"min=1"`
	MaxEntryBytes int `mapstructure:"max_entry_bytes" validate:"min=0"`
	TTLHours      int `mapstructure:"ttl_hours" validate:"min=1"`
}
