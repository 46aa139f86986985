package domain

import "sort"

// DefaultLanguage is used until the viewer picks another one.
const DefaultLanguage = "en"

var languageNames = map[string]string{
	"af": "Afrikaans", "sq": "Albanian", "ar": "Arabic", "hy": "Armenian",
	"bn": "Bengali", "bg": "Bulgarian", "zh-HK": "Cantonese", "ca": "Catalan",
	"zh-CN": "Chinese (Simplified)", "zh-TW": "Chinese (Traditional)", "zh": "Chinese",
	"hr": "Croatian", "cs": "Czech", "da": "Danish", "nl": "Dutch",
	"en": "English (US)", "en-AU": "English (AU)", "en-GB": "English (UK)",
	"et": "Estonian", "fi": "Finnish", "fr": "French (FR)", "fr-CA": "French (CA)",
	"ka": "Georgian", "de": "German", "el": "Greek", "gu": "Gujarati",
	"he": "Hebrew", "hi": "Hindi", "hu": "Hungarian", "is": "Icelandic",
	"id": "Indonesian", "ga": "Irish", "it": "Italian", "ja": "Japanese",
	"kn": "Kannada", "ko": "Korean", "lv": "Latvian", "lt": "Lithuanian",
	"mk": "Macedonian", "ms": "Malay", "mt": "Maltese", "no": "Norwegian",
	"fa": "Persian", "pl": "Polish", "pt": "Portuguese (PT)", "pt-BR": "Portuguese (BR)",
	"pa": "Punjabi", "ro": "Romanian", "ru": "Russian", "sr": "Serbian",
	"sk": "Slovak", "sl": "Slovenian", "es": "Spanish (ES)", "es-MX": "Spanish (MX)",
	"sw": "Swahili", "sv": "Swedish", "tl": "Tagalog", "ta": "Tamil",
	"th": "Thai", "tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu",
	"vi": "Vietnamese", "cy": "Welsh",
}

// Language is one selectable translation target.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// KnownLanguage reports whether code is a supported translation target.
func KnownLanguage(code string) bool {
	_, ok := languageNames[code]
	return ok
}

// LanguageName returns the display name for code, or code itself when unknown.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// Languages lists supported languages sorted by display name.
func Languages() []Language {
	out := make([]Language, 0, len(languageNames))
	for code, name := range languageNames {
		out = append(out, Language{Code: code, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}
