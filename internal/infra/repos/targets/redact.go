package targets

import (
	"net/url"
	"strings"

	"github.com/mmrzaf/mockagen/internal/domain"
)

const mask = "****"

// secretKeys are DSN query parameters, DSN keywords and option keys whose
// values are never shown.
var secretKeys = map[string]bool{
	"password": true,
	"pass":     true,
	"pwd":      true,
	"secret":   true,
	"token":    true,
	"api_key":  true,
	"apikey":   true,
}

func isSecret(key string) bool { return secretKeys[strings.ToLower(key)] }

// RedactDSN masks credentials in a connection string. A DSN in neither URL
// nor keyword form is masked entirely.
func RedactDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return redactURL(u)
	}
	if out, ok := redactKeywords(dsn); ok {
		return out
	}
	return mask
}

func redactURL(u *url.URL) string {
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), mask)
		}
	}
	q := u.Query()
	for k := range q {
		if isSecret(k) {
			q.Set(k, mask)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// redactKeywords handles "host=h user=u password=p". ok is false when dsn has
// no key=value fields at all.
func redactKeywords(dsn string) (string, bool) {
	fields := strings.Fields(dsn)
	keyed := false
	for i, f := range fields {
		key, _, found := strings.Cut(f, "=")
		if !found {
			continue
		}
		keyed = true
		if isSecret(key) {
			fields[i] = key + "=" + mask
		}
	}
	return strings.Join(fields, " "), keyed
}

// RedactTarget returns a copy of t that is safe to show. File targets keep
// their output directory.
func RedactTarget(t *domain.TargetConfig) *domain.TargetConfig {
	if t == nil {
		return nil
	}
	cp := *t
	if !cp.IsFile() {
		cp.DSN = RedactDSN(cp.DSN)
	}
	if len(t.Options) > 0 {
		cp.Options = make(map[string]string, len(t.Options))
		for k, v := range t.Options {
			if isSecret(k) {
				v = mask
			}
			cp.Options[k] = v
		}
	}
	return &cp
}

func RedactTargets(list []*domain.TargetConfig) []*domain.TargetConfig {
	out := make([]*domain.TargetConfig, 0, len(list))
	for _, t := range list {
		out = append(out, RedactTarget(t))
	}
	return out
}
