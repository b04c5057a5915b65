package models

// Word is a content store entry taught by a lesson unit.
type Word struct {
	Word            string `json:"word" yaml:"word"`
	Transliteration string `json:"transliteration" yaml:"transliteration"`
	Meaning         string `json:"meaning" yaml:"meaning"`
	AudioPrompt     string `json:"audio_prompt,omitempty" yaml:"audio_prompt,omitempty"` // Optional: prompt for pronunciation audio
}
