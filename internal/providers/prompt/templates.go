package prompt

// Template keys looked up in the prompt catalog.
const (
	KeyDescription    = "content.description"
	KeyTagline        = "content.tagline"
	KeyServices       = "content.services"
	KeyCategories     = "content.categories"
	KeyRecommendation = "content.template_recommendation"
	KeySection        = "content.section"
	KeyImagePrompts   = "images.prompts"
)

// SectionKey returns the catalog key of a section-specific override. Callers
// fall back to KeySection when the override is absent.
func SectionKey(section string) string {
	return KeySection + "." + section
}

// Defaults are the built-in templates served when the store has no row for a
// key. Placeholders use double braces and are filled by Render.
var Defaults = map[string]string{
	KeyDescription: `You write website copy for small businesses.
Write a warm, specific "about us" description of 2 to 3 sentences for the business below.
Business name: {{businessName}}
Industry: {{industry}}
Owner notes: {{description}}
Services: {{services}}
Write in language "{{language}}".
Respond strictly as JSON: {"description": string}`,

	KeyTagline: `Write one short tagline (at most 8 words) for the website of {{businessName}}, a {{industry}} business.
Context: {{description}}
Write in language "{{language}}".
Respond strictly as JSON: {"tagline": string}`,

	KeyServices: `List {{count}} services or products offered by {{businessName}}, a {{industry}} business.
Context: {{description}}
Known services: {{services}}
Write in language "{{language}}".
Respond strictly as a JSON array: [{"name": string, "description": string}]`,

	KeyCategories: `Propose {{count}} online store categories for {{businessName}}, a {{industry}} business.
Context: {{description}}
Existing categories: {{categories}}
Write in language "{{language}}".
Respond strictly as a JSON array: [{"name": string, "description": string}]`,

	KeyRecommendation: `Pick the best website template for {{businessName}}, a {{industry}} business.
Context: {{description}}
Enabled sections: {{sections}}
Available templates (JSON): {{templates}}
Respond strictly as JSON: {"template_id": string, "reason": string}`,

	KeySection: `Write the "{{section}}" section of the website of {{businessName}}, a {{industry}} business.
Context: {{description}}
Tagline: {{tagline}}
Services: {{services}}
Produce exactly {{count}} entries. Every entry has the fields: {{fields}}.
Write in language "{{language}}".
Respond strictly as a JSON array of objects with only those fields.`,

	KeyImagePrompts: `You are an art director planning photos for the website of {{businessName}}.
Industry: {{industry}}
Tagline: {{tagline}}
Description: {{description}}
Services: {{services}}
Store categories: {{categories}}
Generated content (JSON): {{content}}
Write one photographic image prompt for each slot below. Reference the concrete entities of the slot (dish names, roles, products) where possible. No text or logos in the image.
Slots (JSON): {{slots}}
Respond strictly as JSON: {"prompts": [{"field_path": string, "prompt": string}]}`,
}
