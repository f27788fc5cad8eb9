package relay

import "time"

// Config represents the serve subcommand's relay settings.
type Config struct {
	Addr          string        `help:"Relay listen address" default:":3243" env:"PADBRIDGE_RELAY_ADDR"`
	Password      string        `help:"Password clients must authenticate with; empty disables auth" env:"PADBRIDGE_RELAY_PASSWORD"`
	IdleTimeout   time.Duration `help:"Disconnect a client that sends nothing for this long; 0 disables" default:"0s" env:"PADBRIDGE_RELAY_IDLE_TIMEOUT"`
	MaxTextLength int           `help:"Longest display text accepted from a client" default:"64"`
}
