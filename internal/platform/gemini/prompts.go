package gemini

import "github.com/draftwire/newsletter-api/internal/domain"

// sectionPromptTemplate is the shared frame every section prompt uses.
// The per-type writing brief is injected as Instruction.
const sectionPromptTemplate = `You are writing one section of an email newsletter for {{.CompanyName}}, a company in the {{.Industry}} industry.
{{- if .TargetAudience}}
The newsletter is aimed at: {{.TargetAudience}}.
{{- end}}
{{- if .AudienceDescription}}
About the audience: {{.AudienceDescription}}
{{- end}}

{{.Instruction}}

Respond with a single JSON object of the form:
{"title": "<section heading>", "content": "<section body, 2-4 short paragraphs of plain text>"}

Do not include any text outside the JSON object.`

// sectionInstructions maps each section type to its writing brief.
var sectionInstructions = map[domain.SectionType]string{
	domain.SectionTypeWelcome: `Write a warm welcome section that introduces this issue of the newsletter, ` +
		`speaks in the company's voice, and previews what the reader will find below.`,

	domain.SectionTypeIndustryTrends: `Write a section covering two or three current trends in the company's industry ` +
		`that this audience should know about, with a short practical takeaway for each.`,

	domain.SectionTypePracticalTips: `Write a section with three concrete, actionable tips the audience can apply ` +
		`this week, each with a one-sentence explanation of why it helps.`,
}
