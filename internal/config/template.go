package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template is the commented config written by `csvimport init`.
const Template = `# csvimport configuration.
# Precedence: command-line flags > environment variables > this file > defaults.
# The database password is never stored here. Use PGPASSWORD, .pgpass or .env.

connection:
  driver: postgres        # postgres | sqlite | mysql
  host: localhost
  port: 5432
  username: postgres
  database: test_db
  sslmode: prefer
  # path: ./sales.db      # sqlite database file
  # auth_method: aws      # aws | google | azure
  # aws_region: us-east-1
  # google_instance: project:region:instance
  # azure_tenant_id: ""
  # azure_client_id: ""

source:
  path: sample_data.csv
  delimiter: ","
  encoding: utf-8         # utf-8 | utf-16 | latin1 | windows-1252

table: sales_data
batch_size: 1000
fail_on_empty: false
# Reject rows whose product_name is blank (accepted by default)
require_name: false
timeout: 5m

log:
  file: csv_import.log
  level: info
  # max_size_mb: 10       # enables rotation; 0 appends to a single file
  # max_backups: 3
  # max_age_days: 28
`

// WriteTemplate writes Template into dir. An existing file is only replaced
// when force is set.
func WriteTemplate(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
