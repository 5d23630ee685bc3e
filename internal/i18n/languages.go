package i18n

import "sort"

var languageNames = map[string]string{
	"en": "English",
	"fa": "Persian",
}

func GetLanguagesList() []string {
	languages := make([]string, 0, len(languageNames))
	for code := range languageNames {
		languages = append(languages, code)
	}
	sort.Strings(languages)
	return languages
}
