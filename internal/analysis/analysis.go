// Package analysis produces the placeholder text analysis returned by
// POST /analyze_text. No semantic processing happens here: accepted input
// is echoed back inside a fixed template.
package analysis

import (
	"fmt"
	"unicode/utf8"
)

// MinLength is the minimum input length in characters (Unicode code points).
const MinLength = 5

// SourceTextInput tags results produced from typed text.
const SourceTextInput = "text_input"

// RejectedMessage is returned when the input is shorter than MinLength.
const RejectedMessage = "Geçerli metin girilmedi."

const template = "Analiz simülasyonu tamamlandı: Bu fikir, 'Girişimcilik', 'MVP Geliştirme' ve 'Yapay Zeka' ana kavramlarına ayrıldı. Metin: '%s'"

// Result is the analyze_text response body.
type Result struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis"`
	Source   string `json:"source,omitempty"`
}

// Analyze returns the placeholder analysis for text. It is a pure function.
func Analyze(text string) Result {
	if utf8.RuneCountInString(text) < MinLength {
		return Result{Success: false, Analysis: RejectedMessage}
	}
	return Result{
		Success:  true,
		Analysis: fmt.Sprintf(template, text),
		Source:   SourceTextInput,
	}
}
