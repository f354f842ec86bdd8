package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Quote Tracker Configuration
# Every key can also be set through QT_<SECTION>_<KEY>, e.g. QT_POLL_INTERVAL=30.

[poll]
# Comma-separated SYMBOL:EXCHANGE codes; the exchange is dropped from the storage key
codes = "AAPL:NASDAQ,BBCA:IDX,TLKM:IDX"
# Seconds between tick starts
interval = 10
# sequential or concurrent
mode = "sequential"
# Shorthand for mode = "concurrent"
use_async = false
# In concurrent mode, finish every fetch of a tick before sleeping
wait_for_tick = false
# Cap on concurrent fetches per tick (0 = one per symbol)
max_concurrency = 0

[fetch]
base_url = "https://www.google.com/finance/quote"
user_agent = "Mozilla/5.0"
# Per-request timeout in seconds
timeout = 15
# Extra attempts for transport failures and 5xx responses within a tick
retries = 0
retry_delay_ms = 500

[extract]
name_selector = ".zzDege"
price_selector = ".YMlKec.fxKbKc"

[store]
# memory or sqlite (in-memory SQLite, nothing is written to disk)
backend = "memory"

[log]
level = "info"
console = true
file = false
`

// WriteTemplate writes a commented config template to path. An existing
// file is left untouched unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}
