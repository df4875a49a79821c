package steam

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language maps a BCP 47 locale to the language name the store API expects
// in its "l" parameter. Unknown or invalid locales fall back to "english".
func Language(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "english"
	}
	base, _ := tag.Base()

	switch base.String() {
	case "zh":
		if script, _ := tag.Script(); script.String() == "Hant" {
			return "tchinese"
		}
		if region, conf := tag.Region(); conf == language.Exact && (region.String() == "TW" || region.String() == "HK") {
			return "tchinese"
		}
		return "schinese"
	case "pt":
		if region, conf := tag.Region(); conf == language.Exact && region.String() == "BR" {
			return "brazilian"
		}
		return "portuguese"
	case "es":
		if region, conf := tag.Region(); conf == language.Exact && region.String() != "ES" {
			return "latam"
		}
		return "spanish"
	case "ko":
		return "koreana"
	}

	name := display.English.Languages().Name(base)
	if name == "" {
		return "english"
	}
	return strings.ToLower(name)
}
