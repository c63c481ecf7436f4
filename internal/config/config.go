package config // package config loads application configuration from environment variables

import (
	"log"      // log is used to report configuration errors and halt execution
	"os"       // os provides access to environment variables
	"strconv"  // strconv converts strings to other types
	"time"     // time resolves the deployment timezone
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for ports and
// scheduling hours.  The service runs in a single configured timezone; all
// date and slot comparisons use it.
type Config struct {
	Env        string         // application environment (e.g. "dev", "prod")
	Port       string         // HTTP port to listen on
	DBUser     string         // database username
	DBPass     string         // database password (optional)
	DBHost     string         // database host address
	DBPort     string         // database port number
	DBName     string         // database name
	JWTSecret  string         // secret used to verify access tokens
	Timezone   *time.Location // deployment timezone for clock-based filtering
	SMTPHost   string         // outgoing mail server host
	SMTPPort   int            // outgoing mail server port
	SMTPUser   string         // outgoing mail account
	SMTPPass   string         // outgoing mail password
	MailFrom   string         // From header on notification mail
	DigestHour int            // local hour of day the daily digest is sent
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  SMTP settings are
// optional: when SMTP_HOST is empty the mail sender runs in dry mode and
// only logs outgoing messages.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),      // environment (dev/test/prod)
		Port:       must("APP_PORT"),     // port to bind the HTTP server
		DBUser:     must("DB_USER"),      // database user
		DBPass:     os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:     must("DB_HOST"),      // database host
		DBPort:     must("DB_PORT"),      // database port
		DBName:     must("DB_NAME"),      // database name
		JWTSecret:  must("JWT_SECRET"),   // secret shared with the identity service
		Timezone:   location("APP_TIMEZONE"),
		SMTPHost:   os.Getenv("SMTP_HOST"),
		SMTPPort:   atoiDefault(os.Getenv("SMTP_PORT"), 587),
		SMTPUser:   os.Getenv("SMTP_USER"),
		SMTPPass:   os.Getenv("SMTP_PASS"),
		MailFrom:   getenv("MAIL_FROM", os.Getenv("SMTP_USER")),
		DigestHour: atoiDefault(os.Getenv("DIGEST_HOUR"), 6),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// location loads the timezone named by key, defaulting to UTC when the
// variable is unset.  An unknown zone name is fatal because every
// "future meeting" comparison depends on it.
func location(key string) *time.Location {
	name := os.Getenv(key)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Fatalf("invalid timezone for %s: %q", key, name)
	}
	return loc
}

// atoiDefault converts s to an int, falling back to def when s is empty
// or malformed.
func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
