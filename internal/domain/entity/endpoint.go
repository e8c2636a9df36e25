package entity

import (
	"net/url"
	"strings"
)

// Endpoint is a single remote ledger-query endpoint. Lower Priority
// values are tried first.
type Endpoint struct {
	URL      string `json:"url" yaml:"url"`
	Priority int    `json:"priority" yaml:"priority"`
}

// Query parameters whose values never appear in logs.
var sensitiveQueryParams = map[string]struct{}{
	"api-key":    {},
	"apikey":     {},
	"api_key":    {},
	"access-key": {},
	"token":      {},
}

// Redacted returns the endpoint URL with embedded access-key query
// parameters masked, safe for logging.
func (e Endpoint) Redacted() string {
	u, err := url.Parse(e.URL)
	if err != nil {
		// Unparseable URLs could hide anything; mask the whole string.
		return "<unparseable endpoint url>"
	}
	q := u.Query()
	changed := false
	for key := range q {
		if _, ok := sensitiveQueryParams[strings.ToLower(key)]; ok {
			q.Set(key, "****")
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
