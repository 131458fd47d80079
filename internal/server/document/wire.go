package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"gopkg.in/yaml.v3"
)

// Wire shapes. Timestamps travel as RFC 3339 UTC strings so that the text
// form is identical whatever the parser's time handling.

type wireDocument struct {
	Users      []wireUser      `yaml:"users"`
	Metrics    wireMetrics     `yaml:"metrics"`
	AccessLogs []wireAccessLog `yaml:"access_logs"`
}

type wireUser struct {
	ID           int     `yaml:"id"`
	Name         string  `yaml:"name"`
	Email        string  `yaml:"email"`
	PasswordHash string  `yaml:"password_hash"`
	Role         string  `yaml:"role"`
	Active       bool    `yaml:"active"`
	LastLogin    *string `yaml:"last_login"`
	CreatedAt    string  `yaml:"created_at,omitempty"`
}

type wireMetrics struct {
	MonthlyAccesses map[string]int `yaml:"monthly_accesses"`
}

type wireAccessLog struct {
	Email string `yaml:"email"`
	TS    string `yaml:"ts"`
}

// inUser accepts both current and legacy (nome/papel/ativo/hash_senha) keys.
// Current keys win when both are present.
type inUser struct {
	ID           *int     `yaml:"id"`
	Name         *string  `yaml:"name"`
	Nome         *string  `yaml:"nome"`
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	HashSenha    string   `yaml:"hash_senha"`
	Role         *string  `yaml:"role"`
	Papel        *string  `yaml:"papel"`
	Active       flexBool `yaml:"active"`
	Ativo        flexBool `yaml:"ativo"`
	LastLogin    *string  `yaml:"last_login"`
	CreatedAt    string   `yaml:"created_at"`
}

type inDocument struct {
	Users   []inUser `yaml:"users"`
	Metrics *struct {
		MonthlyAccesses map[string]int `yaml:"monthly_accesses"`
	} `yaml:"metrics"`
	AccessLogs []wireAccessLog `yaml:"access_logs"`
}

// flexBool decodes true/false as well as the legacy 0/1 integer flag.
type flexBool struct {
	set   bool
	value bool
}

func (b *flexBool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected scalar flag", node.Line)
	}
	switch strings.ToLower(strings.TrimSpace(node.Value)) {
	case "true", "yes", "on":
		b.set, b.value = true, true
		return nil
	case "false", "no", "off", "", "null", "~":
		b.set, b.value = true, false
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid flag %q", node.Line, node.Value)
	}
	b.set, b.value = true, n != 0
	return nil
}

// Parse reads a YAML document. The root must be a mapping; anything else
// fails with common.ErrDecodeFailure.
//
// Missing fields default as: id to the next free id, name to "", role to
// "Reader", active to true, last_login to null. Access-log entries with an
// unreadable timestamp are dropped.
func Parse(text []byte) (*models.Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDecodeFailure, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: document root is not a mapping", common.ErrDecodeFailure)
	}

	var in inDocument
	if err := root.Content[0].Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrDecodeFailure, err)
	}

	doc := models.NewDocument()

	next := 0
	for _, u := range in.Users {
		if u.ID != nil && *u.ID > next {
			next = *u.ID
		}
	}

	for _, u := range in.Users {
		user := &models.User{
			Email:  u.Email,
			Role:   common.RoleReader,
			Active: true,
		}

		if u.ID != nil {
			user.ID = *u.ID
		} else {
			next++
			user.ID = next
		}

		switch {
		case u.Name != nil:
			user.Name = *u.Name
		case u.Nome != nil:
			user.Name = *u.Nome
		}

		switch {
		case u.Role != nil:
			user.Role = *u.Role
		case u.Papel != nil:
			user.Role = *u.Papel
		}

		switch {
		case u.Active.set:
			user.Active = u.Active.value
		case u.Ativo.set:
			user.Active = u.Ativo.value
		}

		hash := u.PasswordHash
		if hash == "" {
			hash = u.HashSenha
		}
		user.PasswordHash = decodeHash(hash)

		if u.LastLogin != nil {
			if t, ok := parseTime(*u.LastLogin); ok {
				user.LastLogin = &t
			}
		}
		if t, ok := parseTime(u.CreatedAt); ok {
			user.CreatedAt = t
		}

		doc.Users = append(doc.Users, user)
	}

	if in.Metrics != nil {
		for k, v := range in.Metrics.MonthlyAccesses {
			doc.Metrics.MonthlyAccesses[k] = v
		}
	}

	for _, l := range in.AccessLogs {
		t, ok := parseTime(l.TS)
		if !ok {
			continue
		}
		doc.AccessLogs = append(doc.AccessLogs, models.AccessLog{Email: l.Email, TS: t})
	}

	return doc, nil
}

// Render writes doc as YAML with the current key names. The output is
// deterministic: users and logs keep their order, metric keys are sorted.
func Render(doc *models.Document) ([]byte, error) {
	w := wireDocument{
		Users:      make([]wireUser, 0, len(doc.Users)),
		Metrics:    wireMetrics{MonthlyAccesses: doc.Metrics.MonthlyAccesses},
		AccessLogs: make([]wireAccessLog, 0, len(doc.AccessLogs)),
	}
	if w.Metrics.MonthlyAccesses == nil {
		w.Metrics.MonthlyAccesses = map[string]int{}
	}

	for _, u := range doc.Users {
		wu := wireUser{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: base64.StdEncoding.EncodeToString(u.PasswordHash),
			Role:         u.Role,
			Active:       u.Active,
		}
		if u.LastLogin != nil {
			s := formatTime(*u.LastLogin)
			wu.LastLogin = &s
		}
		if !u.CreatedAt.IsZero() {
			wu.CreatedAt = formatTime(u.CreatedAt)
		}
		w.Users = append(w.Users, wu)
	}

	for _, l := range doc.AccessLogs {
		w.AccessLogs = append(w.AccessLogs, wireAccessLog{Email: l.Email, TS: formatTime(l.TS)})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(w); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return buf.Bytes(), nil
}

type inSettings struct {
	RetentionDays *int `yaml:"retention_days"`
	MaxTableRows  *int `yaml:"max_table_rows"`
}

// ParseSettings reads the log configuration document. Missing or
// non-positive values fall back to the defaults.
func ParseSettings(text []byte) (models.LogSettings, error) {
	s := models.DefaultLogSettings()

	var root yaml.Node
	if err := yaml.Unmarshal(text, &root); err != nil {
		return s, fmt.Errorf("%w: %w", common.ErrDecodeFailure, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return s, fmt.Errorf("%w: settings root is not a mapping", common.ErrDecodeFailure)
	}

	var in inSettings
	if err := root.Content[0].Decode(&in); err != nil {
		return s, fmt.Errorf("%w: %w", common.ErrDecodeFailure, err)
	}
	if in.RetentionDays != nil && *in.RetentionDays > 0 {
		s.RetentionDays = *in.RetentionDays
	}
	if in.MaxTableRows != nil && *in.MaxTableRows > 0 {
		s.MaxTableRows = *in.MaxTableRows
	}
	return s, nil
}

// decodeHash accepts base64 of the bcrypt bytes, or a bare bcrypt string
// left by hand edits. Anything else yields no hash, which never verifies.
func decodeHash(s string) []byte {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "$2") {
		return []byte(s)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var legacyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTime reads RFC 3339 timestamps and the zone-less ISO forms older
// documents contain; zone-less values are taken as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range legacyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
