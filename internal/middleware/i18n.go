package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

type localeContextKey struct{}

var LocaleKey = localeContextKey{}

// CountryLookup resolves an ISO country code for a client IP.
type CountryLookup func(ip string) (string, error)

// countryHeaders are set by CDNs and load balancers in front of the service.
var countryHeaders = []string{"X-Country-Code", "X-IP-Country", "CF-IPCountry", "X-Appengine-Country"}

// I18N negotiates the response locale from X-Locale, then Accept-Language,
// then the client's country, against the supported locales. The first
// supported locale is the fallback. lookup may be nil.
func I18N(supported []string, lookup CountryLookup) func(http.Handler) http.Handler {
	n := newNegotiator(supported)
	n.lookup = lookup
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			locale := n.detect(r)
			w.Header().Set("Content-Language", locale)
			ctx := context.WithValue(r.Context(), LocaleKey, locale)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type negotiator struct {
	locales []string
	matcher language.Matcher
	lookup  CountryLookup
}

func newNegotiator(supported []string) *negotiator {
	var locales []string
	var tags []language.Tag
	for _, s := range supported {
		tag, err := language.Parse(strings.TrimSpace(s))
		if err != nil {
			continue
		}
		locales = append(locales, strings.ToLower(strings.TrimSpace(s)))
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		locales = []string{"en"}
		tags = []language.Tag{language.English}
	}
	return &negotiator{locales: locales, matcher: language.NewMatcher(tags)}
}

func (n *negotiator) detect(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Locale")); v != "" {
		if tag, err := language.Parse(v); err == nil {
			if locale, ok := n.match(tag); ok {
				return locale
			}
		}
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		if tags, _, err := language.ParseAcceptLanguage(header); err == nil && len(tags) > 0 {
			if locale, ok := n.match(tags...); ok {
				return locale
			}
		}
	}
	if locale, ok := n.matchCountry(ResolveCountry(r, n.lookup)); ok {
		return locale
	}
	return n.locales[0]
}

// matchCountry picks the supported locale for the most likely language of a
// country, e.g. ID -> id.
func (n *negotiator) matchCountry(country string) (string, bool) {
	if country == "" {
		return "", false
	}
	region, err := language.ParseRegion(country)
	if err != nil {
		return "", false
	}
	tag, err := language.Compose(language.Und, region)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	return n.match(language.Make(base.String()))
}

// ResolveCountry returns a best-effort upper-case ISO country code from proxy
// headers, falling back to lookup on the client IP.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); v != "" {
			return strings.ToUpper(v)
		}
	}
	if lookup == nil {
		return ""
	}
	country, err := lookup(clientIP(r))
	if err != nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(country))
}

func (n *negotiator) match(tags ...language.Tag) (string, bool) {
	_, idx, conf := n.matcher.Match(tags...)
	if conf == language.No {
		return "", false
	}
	return n.locales[idx], true
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(LocaleKey).(string); ok {
		return v
	}
	return "en"
}
