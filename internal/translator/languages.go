package translator

// geminiLanguages maps dataset language codes to the names used in the prompt.
// Pairs with a side missing here are not sent to the API.
var geminiLanguages = map[string]string{
	"en":    "English",
	"pt":    "Portuguese",
	"pt-BR": "Portuguese",
	"es":    "Spanish",
	"fr":    "French",
	"de":    "German",
	"nl":    "Dutch",
	"it":    "Italian",
	"ko":    "Korean",
	"zh":    "Chinese",
	"uk":    "Ukrainian",
	"uk-UA": "Ukrainian",
	"ja":    "Japanese",
	"pl":    "Polish",
	"ar":    "Arabic",
	"bn":    "Bengali",
	"bg":    "Bulgarian",
	"hr":    "Croatian",
	"cs":    "Czech",
	"da":    "Danish",
	"et":    "Estonian",
	"fi":    "Finnish",
	"el":    "Greek",
	"iw":    "Hebrew",
	"hi":    "Hindi",
	"hu":    "Hungarian",
	"id":    "Indonesian",
	"lv":    "Latvian",
	"lt":    "Lithuanian",
	"no":    "Norwegian",
	"ro":    "Romanian",
	"ru":    "Russian",
	"sr":    "Serbian",
	"sk":    "Slovak",
	"sl":    "Slovenian",
	"sw":    "Swahili",
	"sv":    "Swedish",
	"th":    "Thai",
	"tr":    "Turkish",
	"vi":    "Vietnamese",
}

// GeminiLanguage returns the prompt name for code.
func GeminiLanguage(code string) (string, bool) {
	name, ok := geminiLanguages[code]
	return name, ok
}
