package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// driverFromURL infers the driver from a DATABASE_URL scheme. mysql is the
// fallback, also for bare go-sql-driver DSNs (user:pass@tcp(host)/db).
func driverFromURL(raw string) string {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		if strings.HasPrefix(raw, "file:") {
			return DriverSQLite
		}
		return DriverMySQL
	}
	scheme = strings.ToLower(scheme)
	// SQLAlchemy style dialect+driver, e.g. mysql+pymysql
	if base, _, found := strings.Cut(scheme, "+"); found {
		scheme = base
	}
	scheme = strings.TrimPrefix(scheme, "jdbc:")
	return scheme
}

// DSN returns the connection string for the configured driver. An explicit
// DATABASE_URL takes precedence over host/port/user/password/name.
func (d DB) DSN() string {
	if d.URL != "" {
		switch d.Driver {
		case DriverMySQL:
			return normalizeMySQLURL(d.URL)
		case DriverSQLite:
			return strings.TrimPrefix(strings.TrimPrefix(d.URL, "sqlite3://"), "sqlite://")
		default:
			return strings.Replace(d.URL, "postgresql+psycopg2://", "postgres://", 1)
		}
	}

	hostport := net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	switch d.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(d.User, d.Password),
			Host:     hostport,
			Path:     "/" + d.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case DriverSQLite:
		if d.Name == ":memory:" || filepath.Ext(d.Name) != "" {
			return d.Name
		}
		return d.Name + ".db"
	default:
		mc := baseMySQLConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Addr = hostport
		mc.DBName = d.Name
		return mc.FormatDSN()
	}
}

func baseMySQLConfig() *mysql.Config {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc
}

// normalizeMySQLURL rewrites URL-shaped MySQL DSNs (mysql://, mysql+pymysql://,
// jdbc:mysql://) into go-sql-driver syntax. Anything else is handed to the
// driver unchanged so it can report its own parse error.
func normalizeMySQLURL(raw string) string {
	in := strings.TrimSpace(raw)
	in = strings.TrimPrefix(in, "jdbc:")
	scheme, rest, ok := strings.Cut(in, "://")
	if !ok || !strings.HasPrefix(strings.ToLower(scheme), "mysql") {
		return in
	}
	u, err := url.Parse("mysql://" + rest)
	if err != nil {
		return in
	}

	mc := baseMySQLConfig()
	if u.User != nil {
		mc.User = u.User.Username()
		mc.Passwd, _ = u.User.Password()
	}
	mc.Addr = u.Host
	if u.Port() == "" {
		mc.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	mc.DBName = strings.TrimPrefix(u.Path, "/")

	for k, vals := range u.Query() {
		if len(vals) == 0 {
			continue
		}
		val := vals[0]
		switch k {
		case "parseTime":
			// always on; time columns must scan into time.Time
		case "loc", "serverTimezone":
			if loc, err := time.LoadLocation(val); err == nil {
				mc.Loc = loc
			}
		case "tls", "useSSL":
			mc.TLSConfig = sslToTLS(val)
		case "characterEncoding":
			mc.Params["charset"] = val
		case "user":
			mc.User = val
		case "password":
			mc.Passwd = val
		default:
			mc.Params[k] = val
		}
	}
	return mc.FormatDSN()
}

func sslToTLS(v string) string {
	switch strings.ToLower(v) {
	case "true", "1":
		return "true"
	case "skip-verify":
		return "skip-verify"
	case "preferred":
		return "preferred"
	}
	return "false"
}
