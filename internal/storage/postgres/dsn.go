package postgres

import (
	"fmt"

	"github.com/SickoOrange/SimpleAndReason/config"
)

// DSN returns cfg.DSN when set, else a keyword DSN built from the discrete fields.
func DSN(cfg *config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name,
	)
}
