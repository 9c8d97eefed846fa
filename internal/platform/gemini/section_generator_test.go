package gemini

import (
	"bytes"
	"errors"
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftwire/newsletter-api/internal/domain"
	"github.com/draftwire/newsletter-api/internal/generation"
)

func TestSectionInstructionsCoverAllTypes(t *testing.T) {
	t.Parallel()

	for _, sectionType := range domain.RequiredSectionTypes {
		assert.Contains(t, sectionInstructions, sectionType,
			"section type %q must have a registered prompt", sectionType)
	}
}

func TestPromptTemplateRendering(t *testing.T) {
	t.Parallel()

	tmpl, err := template.New("section").Parse(sectionPromptTemplate)
	require.NoError(t, err)

	t.Run("full context", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := tmpl.Execute(&buf, promptData{
			Instruction:         sectionInstructions[domain.SectionTypeWelcome],
			CompanyName:         "Acme Plumbing",
			Industry:            "home services",
			TargetAudience:      "homeowners",
			AudienceDescription: "Homeowners in older houses who handle small repairs themselves.",
		})
		require.NoError(t, err)

		prompt := buf.String()
		assert.Contains(t, prompt, "Acme Plumbing")
		assert.Contains(t, prompt, "home services")
		assert.Contains(t, prompt, "homeowners")
		assert.Contains(t, prompt, "older houses")
		assert.Contains(t, prompt, `"title"`)
	})

	t.Run("optional audience fields omitted", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := tmpl.Execute(&buf, promptData{
			Instruction: sectionInstructions[domain.SectionTypePracticalTips],
			CompanyName: "Acme Plumbing",
			Industry:    "home services",
		})
		require.NoError(t, err)

		prompt := buf.String()
		assert.NotContains(t, prompt, "aimed at")
		assert.NotContains(t, prompt, "About the audience")
	})
}

func TestParseResponse(t *testing.T) {
	t.Parallel()

	t.Run("valid response", func(t *testing.T) {
		t.Parallel()

		parsed, err := parseResponse(`{"title": "Welcome!", "content": "Hello and welcome."}`)

		require.NoError(t, err)
		assert.Equal(t, "Welcome!", parsed.Title)
		assert.Equal(t, "Hello and welcome.", parsed.Content)
		assert.Empty(t, parsed.ImageURL)
	})

	t.Run("response with image", func(t *testing.T) {
		t.Parallel()

		parsed, err := parseResponse(
			`{"title": "Trends", "content": "Body.", "image_url": "https://img.example.com/a.png"}`,
		)

		require.NoError(t, err)
		assert.Equal(t, "https://img.example.com/a.png", parsed.ImageURL)
	})

	t.Run("malformed JSON is an invalid response", func(t *testing.T) {
		t.Parallel()

		parsed, err := parseResponse("here is your section: welcome!")

		assert.Nil(t, parsed)
		assert.True(t, errors.Is(err, generation.ErrInvalidResponse))
	})
}
