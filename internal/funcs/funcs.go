package funcs

import (
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/kassaio/kassa/internal/money"

	"golang.org/x/exp/constraints"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var TemplateFuncs = template.FuncMap{
	// Time functions
	"now":            time.Now,
	"timeSince":      time.Since,
	"timeUntil":      time.Until,
	"formatTime":     formatTime,
	"approxDuration": approxDuration,

	// String functions
	"uppercase": strings.ToUpper,
	"lowercase": strings.ToLower,
	"pluralize": pluralize[int],

	// Number functions
	"incr":        incr[int],
	"decr":        decr[int],
	"formatInt":   formatInt[int],
	"formatFloat": formatFloat,

	// Money functions
	"formatKopeks": formatKopeks,

	// Boolean functions
	"yesno": yesno,
}

func formatTime(format string, t time.Time) string {
	return t.Format(format)
}

func approxDuration(d time.Duration) string {
	if d < time.Second {
		return "less than 1 second"
	}

	ds := int(d.Seconds())
	if ds == 1 {
		return "1 second"
	} else if ds < 60 {
		return strconv.Itoa(ds) + " seconds"
	}

	dm := int(d.Minutes())
	if dm == 1 {
		return "1 minute"
	} else if dm < 60 {
		return strconv.Itoa(dm) + " minutes"
	}

	dh := int(d.Hours())
	if dh == 1 {
		return "1 hour"
	} else if dh < 24 {
		return strconv.Itoa(dh) + " hours"
	}

	dd := int(dh / 24)
	if dd == 1 {
		return "1 day"
	}

	return strconv.Itoa(dd) + " days"
}

func pluralize[T constraints.Integer](count T, singular string, plural string) string {
	if count == 1 {
		return singular
	}

	return plural
}

func incr[T constraints.Integer](i T) T {
	return i + 1
}

func decr[T constraints.Integer](i T) T {
	return i - 1
}

func formatInt[T constraints.Integer](n T) string {
	return message.NewPrinter(language.English).Sprintf("%d", int64(n))
}

func formatFloat(f float64, dp int) string {
	return message.NewPrinter(language.English).Sprintf("%.*f", dp, f)
}

// formatKopeks renders an integer minor-unit amount in major units with a
// thousands separator, e.g. 150000 kopecks -> "1,500.00".
func formatKopeks(k money.Kopeks) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", k.Major())
}

func yesno(b bool) string {
	if b {
		return "Yes"
	}

	return "No"
}
