package formats

import (
	"net/netip"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	sjs "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	fastDateRe         = regexp.MustCompile(`^\d\d\d\d-(?:0[1-9]|1[0-2])-[0-3]\d$`)
	fastTimeRe         = regexp.MustCompile(`(?i)^(?:[0-2]\d:[0-5]\d:[0-5]\d|23:59:60)(?:\.\d+)?(?:z|[+-]\d\d(?::?\d\d)?)?$`)
	fastDateTimeRe     = regexp.MustCompile(`(?i)^\d\d\d\d-(?:0[1-9]|1[0-2])-[0-3]\d[t\s](?:[0-2]\d:[0-5]\d:[0-5]\d|23:59:60)(?:\.\d+)?(?:z|[+-]\d\d(?::?\d\d)?)$`)
	fastURIRe          = regexp.MustCompile(`(?i)^(?:[a-z][a-z0-9+\-.]*:)(?:/?/)?[^\s]*$`)
	fastURIReferenceRe = regexp.MustCompile(`(?i)^(?:(?:[a-z][a-z0-9+\-.]*:)?/?/)?(?:[^\\\s#][^\s#]*)?(?:#[^\\\s]*)?$`)
	fastEmailRe        = regexp.MustCompile("(?i)^[a-z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$")
	fastIPv4Re         = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)$`)

	fullEmailRe = regexp.MustCompile("(?i)^[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$")
	hostLabelRe = regexp.MustCompile(`(?i)^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)
	dateRe      = regexp.MustCompile(`^(\d\d\d\d)-(\d\d)-(\d\d)$`)
	timeRe      = regexp.MustCompile(`(?i)^(\d\d):(\d\d):(\d\d)(\.\d+)?(z|[+-]\d\d(?::?\d\d)?)?$`)

	jsonPointerRe          = regexp.MustCompile(`^(?:/(?:[^~/]|~0|~1)*)*$`)
	jsonPointerFragmentRe  = regexp.MustCompile(`(?i)^#(?:/(?:[a-z0-9_\-.!$&'()*+,;:=@]|%[0-9a-f]{2}|~0|~1)*)*$`)
	relativeJSONPointerRe  = regexp.MustCompile(`^(?:0|[1-9][0-9]*)(?:#|(?:/(?:[^~/]|~0|~1)*)*)$`)
	uriTemplateRe          = regexp.MustCompile(`(?i)^(?:(?:[^\x00-\x20"'<>%\\^` + "`" + `{|}]|%[0-9a-f]{2})|\{[+#./;?&=,!@|]?(?:[a-z0-9_]|%[0-9a-f]{2})+(?::[1-9][0-9]{0,3}|\*)?(?:,(?:[a-z0-9_]|%[0-9a-f]{2})+(?::[1-9][0-9]{0,3}|\*)?)*\})*$`)
	uuidRe                 = regexp.MustCompile(`(?i)^(?:urn:uuid:)?[0-9a-f]{8}-(?:[0-9a-f]{4}-){3}[0-9a-f]{12}$`)
	regexUnsupportedEscape = regexp.MustCompile(`\\Z`)
)

var daysInMonth = [...]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func isDate(s string) bool {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 {
		return false
	}
	if mo == 2 && d == 29 {
		return isLeapYear(y)
	}
	return d <= daysInMonth[mo]
}

func isTime(s string) bool {
	m := timeRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if h > 23 || mi > 59 {
		return false
	}
	// leap second
	return sec <= 59 || (sec == 60 && h == 23 && mi == 59)
}

func isDateTime(s string) bool {
	i := strings.IndexAny(s, "tT ")
	if i < 0 {
		return false
	}
	rest := s[i+1:]
	// a date-time needs a zone
	if !strings.ContainsAny(rest, "zZ+-") {
		return false
	}
	return isDate(s[:i]) && isTime(rest)
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && !strings.ContainsAny(s, " \\")
}

func isURIReference(s string) bool {
	if strings.ContainsAny(s, " \\") {
		return false
	}
	_, err := url.Parse(s)
	return err == nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

func isHostname(s string) bool {
	s = strings.TrimSuffix(s, ".")
	if s == "" || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(s, ".") {
		if !hostLabelRe.MatchString(label) {
			return false
		}
	}
	return true
}

func isEmail(s string) bool {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at > 64 {
		return false
	}
	return fullEmailRe.MatchString(s) && isHostname(s[at+1:])
}

func isIPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func isIPv6(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6() && a.Zone() == ""
}

// isUUID accepts the hyphenated form, optionally with a urn:uuid: prefix.
func isUUID(s string) bool {
	if !uuidRe.MatchString(s) {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func isRegex(s string) bool {
	if regexUnsupportedEscape.MatchString(s) {
		return false
	}
	_, err := regexp.Compile(s)
	return err == nil
}

// extraFull borrows the internationalized and duration checkers, which need
// IDNA and ISO 8601 parsing this package does not carry itself.
func extraFull() map[string]func(any) bool {
	out := map[string]func(any) bool{}
	for _, name := range []string{"iri", "iri-reference", "idn-email", "idn-hostname", "duration"} {
		if fn, ok := sjs.Formats[name]; ok {
			out[name] = fn
		}
	}
	return out
}
