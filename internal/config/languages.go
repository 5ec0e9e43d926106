package config

// Language pairs a display name with its TMDB language tag.
type Language struct {
	Name string
	Code string
}

// Languages lists the selectable title-localization languages.
var Languages = []Language{
	{Name: "English", Code: "en-US"},
	{Name: "Deutsch", Code: "de-DE"},
	{Name: "Español", Code: "es-ES"},
	{Name: "Français", Code: "fr-FR"},
	{Name: "Italiano", Code: "it-IT"},
	{Name: "Nederlands", Code: "nl-NL"},
	{Name: "Polski", Code: "pl-PL"},
	{Name: "Português", Code: "pt-BR"},
	{Name: "Русский", Code: "ru-RU"},
	{Name: "Türkçe", Code: "tr-TR"},
	{Name: "日本語", Code: "ja-JP"},
	{Name: "한국어", Code: "ko-KR"},
	{Name: "中文", Code: "zh-CN"},
}

// SupportedLanguage reports whether code is a selectable language tag.
func SupportedLanguage(code string) bool {
	for _, lang := range Languages {
		if lang.Code == code {
			return true
		}
	}
	return false
}
