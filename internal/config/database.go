package config

import (
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap/zapcore"

	"github.com/nais/kafka-topic-backup/internal/apperr"
)

// DatabaseConfig carries everything needed to build the Postgres connection
// string, including the mutual-TLS material paths.
type DatabaseConfig struct {
	Host            string
	Port            uint16
	User            string
	Password        string
	DBName          string
	SSLCertPath     string
	SSLKeyPath      string
	SSLRootCertPath string
}

// ConnString renders the libpq-style DSN pgx expects, with verify-full TLS.
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=verify-full&sslcert=%s&sslkey=%s&sslrootcert=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName,
		c.SSLCertPath, c.SSLKeyPath, c.SSLRootCertPath,
	)
}

// MarshalLogObject redacts the password so DatabaseConfig is safe to log
// directly via zap.Object.
func (c DatabaseConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("host", c.Host)
	enc.AddUint16("port", c.Port)
	enc.AddString("user", c.User)
	enc.AddString("password", "********")
	enc.AddString("db_name", c.DBName)
	enc.AddString("ssl_cert_path", c.SSLCertPath)
	enc.AddString("ssl_key_path", c.SSLKeyPath)
	enc.AddString("ssl_root_cert_path", c.SSLRootCertPath)
	return nil
}

// LoadDatabaseConfig reads the database connection settings from environment
// variables named "<prefix>_<VAR>", e.g. with the prefix
// "NAIS_DATABASE_PAW_KAFKA_TOPIC_BACKUP_TOPICBACKUP" the host variable is
// "NAIS_DATABASE_PAW_KAFKA_TOPIC_BACKUP_TOPICBACKUP_HOST".
func LoadDatabaseConfig(prefix string) (DatabaseConfig, error) {
	get := func(name string) (string, error) {
		key := prefix + "_" + name
		v, ok := os.LookupEnv(key)
		if !ok {
			return "", apperr.New(apperr.DomainConfig, name, fmt.Errorf("environment variable %s is not set", key))
		}
		return v, nil
	}

	var cfg DatabaseConfig
	var err error

	if cfg.Host, err = get("HOST"); err != nil {
		return DatabaseConfig{}, err
	}
	portStr, err := get("PORT")
	if err != nil {
		return DatabaseConfig{}, err
	}
	port, convErr := strconv.ParseUint(portStr, 10, 16)
	if convErr != nil {
		return DatabaseConfig{}, apperr.New(apperr.DomainConfig, "PORT", convErr)
	}
	cfg.Port = uint16(port)

	if cfg.User, err = get("USERNAME"); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.Password, err = get("PASSWORD"); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.DBName, err = get("DATABASE"); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.SSLCertPath, err = get("SSLCERT"); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.SSLKeyPath, err = get("SSLKEY"); err != nil {
		return DatabaseConfig{}, err
	}
	if cfg.SSLRootCertPath, err = get("SSLROOTCERT"); err != nil {
		return DatabaseConfig{}, err
	}
	return cfg, nil
}
