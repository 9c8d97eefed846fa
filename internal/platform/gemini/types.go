// Package gemini implements the generation.SectionGenerator interface
// using Google's Gemini API.
package gemini

// promptData represents the data passed to the prompt template
type promptData struct {
	// Instruction is the per-section-type writing brief
	Instruction string

	// CompanyName is the company the newsletter is written for
	CompanyName string

	// Industry is the company's industry
	Industry string

	// TargetAudience optionally names who the newsletter addresses
	TargetAudience string

	// AudienceDescription optionally elaborates on the audience
	AudienceDescription string
}

// ResponseSchema represents the expected JSON structure of a generated
// section from the Gemini API
type ResponseSchema struct {
	// Title is the section heading
	Title string `json:"title"`

	// Content is the body text of the section
	Content string `json:"content"`

	// ImageURL optionally references an illustration for the section
	ImageURL string `json:"image_url,omitempty"`
}
