// Package catalog holds the static language and voice tables exposed to the
// frontend and the rules that turn a request's optional voice and model into
// ElevenLabs identifiers.
package catalog

const (
	// ModelTurbo is the ElevenLabs low-latency model.
	ModelTurbo = "eleven_turbo_v2_5"
	// ModelMultilingual is the ElevenLabs multilingual model. The API still
	// names it v2.
	ModelMultilingual = "eleven_multilingual_v2"

	// VoiceRachel is used when no voice is given and the language is not Italian.
	VoiceRachel = "21m00Tcm4TlvDq8ikWAM"
	// VoiceGiovanni is used when no voice is given and the language is Italian.
	VoiceGiovanni = "zcAOhNBS3c14rBihAFp1"
)

// Language is a supported UI language.
type Language struct {
	Code string
	Name string
}

// Voice is a provider voice offered to the frontend.
type Voice struct {
	Name string
	ID   string
}

var languages = []Language{
	{Code: "it", Name: "Italian"},
	{Code: "en", Name: "English"},
	{Code: "fr", Name: "French"},
	{Code: "es", Name: "Spanish"},
	{Code: "de", Name: "German"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "pl", Name: "Polish"},
	{Code: "nl", Name: "Dutch"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "zh", Name: "Chinese"},
	{Code: "ar", Name: "Arabic"},
	{Code: "ru", Name: "Russian"},
	{Code: "hi", Name: "Hindi"},
	{Code: "tr", Name: "Turkish"},
}

type voiceGroup struct {
	language string
	voices   []Voice
}

// Declaration order is the order of the full listing.
var voiceGroups = []voiceGroup{
	{
		language: "en",
		voices: []Voice{
			{Name: "Rachel (F)", ID: VoiceRachel},
			{Name: "Drew (M)", ID: "29vD33N1CtxCmqQRPOHJ"},
			{Name: "Clyde (M)", ID: "2EiwWnXFnvU5JabPnv8n"},
			{Name: "Paul (M)", ID: "5Q0t7uMcjvnagumLfvZi"},
			{Name: "Domi (F)", ID: "AZnzlk1XvdvUeBnXmlld"},
			{Name: "Dave (M)", ID: "CYw3kZ02Hs0563khs1Fj"},
			{Name: "Fin (M)", ID: "D38z5RcWu1voky8WS1ja"},
			{Name: "Sarah (F)", ID: "EXAVITQu4vr4xnSDxMaL"},
			{Name: "Antoni (M)", ID: "ErXwobaYiN019PkySvjV"},
			{Name: "Thomas (M)", ID: "GBv7mTt0atIp3BR8iCZE"},
		},
	},
	{
		language: "it",
		voices: []Voice{
			{Name: "Giovanni (M)", ID: VoiceGiovanni},
			{Name: "Matilda (F)", ID: "XrExE9yKIg1WjnnlVkGX"},
		},
	},
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Voices returns the voices for language. An empty or unknown language
// yields every voice in the catalog.
func Voices(language string) []Voice {
	if language != "" {
		for _, g := range voiceGroups {
			if g.language == language {
				out := make([]Voice, len(g.voices))
				copy(out, g.voices)
				return out
			}
		}
	}

	var out []Voice
	for _, g := range voiceGroups {
		out = append(out, g.voices...)
	}
	return out
}

// ResolveModel maps the request model name to an ElevenLabs model id.
// Anything other than "turbo" selects the multilingual model.
func ResolveModel(model string) string {
	if model == "turbo" {
		return ModelTurbo
	}
	return ModelMultilingual
}

// ResolveVoice returns voice unchanged when set. Otherwise Italian gets
// Giovanni and every other language gets Rachel. Explicit voices are not
// checked against the catalog; ElevenLabs rejects unknown ids itself.
func ResolveVoice(voice, language string) string {
	if voice != "" {
		return voice
	}
	if language == "it" {
		return VoiceGiovanni
	}
	return VoiceRachel
}
