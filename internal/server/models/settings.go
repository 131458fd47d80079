package models

const (
	DefaultRetentionDays = 30
	DefaultMaxTableRows  = 100
)

// LogSettings is the optional, read-only log configuration document.
type LogSettings struct {
	RetentionDays int `json:"retention_days"`
	MaxTableRows  int `json:"max_table_rows"`
}

func DefaultLogSettings() LogSettings {
	return LogSettings{RetentionDays: DefaultRetentionDays, MaxTableRows: DefaultMaxTableRows}
}
