package assignment

// skillDescriptions holds the student-facing description of each standard
// historical thinking skill.
var skillDescriptions = map[string]string{
	"Comprehension":     "Establish a literal, accurate understanding of what the source explicitly states.",
	"Contextualization": "Place the source within its historical time, place, and conditions.",
	"Sourcing":          "Analyze the author, date, audience, and perspective.",
	"Claim/Evidence":    "Make a historical claim about the guiding question using the source, providing textual evidence.",
	"Evaluation":        "Assess the usefulness and limitations of the source for answering the guiding question.",
}

// SkillDescription returns the description of a standard skill, or ""
// for a custom one.
func SkillDescription(skill string) string {
	return skillDescriptions[skill]
}
