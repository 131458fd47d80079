package models

// Access summary grouping.
const (
	GroupDay   = "day"
	GroupWeek  = "week"
	GroupMonth = "month"
)

// PeriodCount is the number of distinct emails seen in one period.
type PeriodCount struct {
	Period string `json:"period"`
	Unique int    `json:"unique"`
}

type AccessSummary struct {
	Days         int           `json:"days"`
	Group        string        `json:"group"`
	Total        int           `json:"total"`
	UniqueEmails int           `json:"unique_emails"`
	Periods      []PeriodCount `json:"periods"`
}

// BootstrapResult reports what Init did about the configured admin account.
type BootstrapResult struct {
	Attempted bool
	Created   bool
	Email     string
	UserID    int
	Err       error
}
