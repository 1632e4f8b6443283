package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// WarehouseConfig defines how to reach the warehouse that receives the staging loads.
// Account, Warehouse and Role mirror the connection surface of hosted warehouses;
// on PostgreSQL the account is used as host when Host is empty, the warehouse name
// becomes the application_name and the role is assumed with SET ROLE.
type WarehouseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres or sqlite
	Account         string        `mapstructure:"account"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Warehouse       string        `mapstructure:"warehouse"`
	Role            string        `mapstructure:"role"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Schema          string        `mapstructure:"schema"`
	SSLMode         string        `mapstructure:"sslmode"`
	Path            string        `mapstructure:"path"` // SQLite file
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	LogLevel        string        `mapstructure:"log_level"` // gorm logger: silent, error, warn, info
}

// Validate checks the fields required by the selected driver.
func (c WarehouseConfig) Validate() error {
	switch c.Driver {
	case "sqlite":
		if c.Path == "" {
			return fmt.Errorf("warehouse.path is required for sqlite")
		}
	case "postgres":
		if c.host() == "" {
			return fmt.Errorf("warehouse.host or warehouse.account is required for postgres")
		}
		if c.User == "" {
			return fmt.Errorf("warehouse.user is required for postgres")
		}
		if c.Database == "" {
			return fmt.Errorf("warehouse.database is required for postgres")
		}
	default:
		return fmt.Errorf("unknown warehouse driver %q", c.Driver)
	}
	return nil
}

func (c WarehouseConfig) host() string {
	if c.Host != "" {
		return c.Host
	}
	return c.Account
}

// DSN builds the driver-specific data source name.
func (c WarehouseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.Path
	}

	params := []string{
		"host=" + c.host(),
		fmt.Sprintf("port=%d", c.Port),
		"user=" + c.User,
		"dbname=" + c.Database,
	}
	if c.Password != "" {
		params = append(params, "password="+quoteDSNValue(c.Password))
	}
	if c.SSLMode != "" {
		params = append(params, "sslmode="+c.SSLMode)
	}
	if c.Warehouse != "" {
		params = append(params, "application_name="+quoteDSNValue(c.Warehouse))
	}
	if c.ConnectTimeout > 0 {
		params = append(params, fmt.Sprintf("connect_timeout=%d", int(c.ConnectTimeout.Seconds())))
	}
	return strings.Join(params, " ")
}

// Redacted returns the DSN with the password masked, for logging.
func (c WarehouseConfig) Redacted() string {
	if c.Driver == "sqlite" {
		return c.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(c.User),
		Host:   fmt.Sprintf("%s:%d", c.host(), c.Port),
		Path:   c.Database,
	}
	return u.String()
}

func quoteDSNValue(v string) string {
	if !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
