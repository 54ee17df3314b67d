package vlm

import "fmt"

const promptTemplate = "You are a medical pill verification system. Compare the two pill images and return only valid JSON with " +
	"keys: image_similarity (0..1), text_similarity (0..1 or null), final_score (0..1), match (boolean), " +
	"detected_text_reference (string), detected_text_test (string), active_ingredient (string or null), " +
	"strength (string or null), reason (short string). " +
	"Expected medicine identifier: %s."

// Prompt renders the comparison instruction for one medicine identifier.
func Prompt(medicineID string) string {
	if medicineID == "" {
		medicineID = "unknown"
	}
	return fmt.Sprintf(promptTemplate, medicineID)
}
