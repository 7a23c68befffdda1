package language

// Language pairs an ISO 639-1 code with its English display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// displayNames maps ISO 639-1 codes to English display names. This is the
// language set the transcription engine can detect.
var displayNames = map[string]string{
	"en": "English",
	"hi": "Hindi",
	"bn": "Bengali",
	"ta": "Tamil",
	"te": "Telugu",
	"mr": "Marathi",
	"ur": "Urdu",
	"pa": "Punjabi",
	"gu": "Gujarati",
	"kn": "Kannada",
	"ml": "Malayalam",
	"or": "Odia",
	"as": "Assamese",
	"zh": "Chinese",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"ar": "Arabic",
	"ja": "Japanese",
	"ko": "Korean",
	"ru": "Russian",
	"pt": "Portuguese",
	"it": "Italian",
	"th": "Thai",
	"vi": "Vietnamese",
	"id": "Indonesian",
	"tr": "Turkish",
}

// floresCodes maps ISO 639-1 codes to NLLB-200 Flores codes (lang_Script).
// See https://github.com/facebookresearch/flores/blob/main/flores200/README.md
var floresCodes = map[string]string{
	"en": "eng_Latn",
	"hi": "hin_Deva",
	"bn": "ben_Beng",
	"ta": "tam_Taml",
	"te": "tel_Telu",
	"mr": "mar_Deva",
	"ur": "urd_Arab",
	"pa": "pan_Guru",
	"gu": "guj_Gujr",
	"kn": "kan_Knda",
	"ml": "mal_Mlym",
	"or": "ory_Orya",
	"as": "asm_Beng",
	"zh": "zho_Hans",
	"fr": "fra_Latn",
	"de": "deu_Latn",
	"es": "spa_Latn",
	"ar": "arb_Arab",
	"ja": "jpn_Jpan",
	"ko": "kor_Hang",
	"ru": "rus_Cyrl",
	"pt": "por_Latn",
	"it": "ita_Latn",
	"th": "tha_Thai",
	"vi": "vie_Latn",
	"id": "ind_Latn",
	"tr": "tur_Latn",
}

// targetLanguages lists selectable caption targets, Indian languages first.
var targetLanguages = []Language{
	{"hi", "Hindi"},
	{"bn", "Bengali"},
	{"ta", "Tamil"},
	{"te", "Telugu"},
	{"mr", "Marathi"},
	{"ur", "Urdu"},
	{"pa", "Punjabi"},
	{"gu", "Gujarati"},
	{"kn", "Kannada"},
	{"ml", "Malayalam"},
	{"en", "English"},
	{"zh", "Chinese"},
	{"fr", "French"},
	{"de", "German"},
	{"es", "Spanish"},
	{"ar", "Arabic"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"ru", "Russian"},
	{"pt", "Portuguese"},
	{"it", "Italian"},
	{"th", "Thai"},
	{"vi", "Vietnamese"},
	{"id", "Indonesian"},
	{"tr", "Turkish"},
}

// DisplayName converts an ISO 639-1 code to its display name. An empty code
// returns "Unknown"; an unmapped code is returned unchanged.
func DisplayName(code string) string {
	if code == "" {
		return "Unknown"
	}
	if name, ok := displayNames[code]; ok {
		return name
	}
	return code
}

// ToFlores converts an ISO 639-1 code to its NLLB-200 Flores code.
func ToFlores(code string) (string, bool) {
	flores, ok := floresCodes[code]
	return flores, ok
}

// Supported reports whether the code is part of the translation language set.
func Supported(code string) bool {
	_, ok := floresCodes[code]
	return ok
}

// TargetLanguages returns the ordered list of selectable target languages.
func TargetLanguages() []Language {
	out := make([]Language, len(targetLanguages))
	copy(out, targetLanguages)
	return out
}
