package resources

import "time"

// FallbackFloor returns the synthesized life-safety payload served when
// an emergency-category request has neither network nor a cache entry.
// The specific entries are configuration; the guarantee that the set is
// never empty for emergency queries is a contract.
func FallbackFloor() []MedicalResource {
	now := time.Now().UTC()
	return []MedicalResource{
		{
			ID:          "offline-emergency-1",
			Title:       "Emergency: Call 911",
			Category:    CategoryEmergency,
			Content:     "For life-threatening emergencies, call 911 immediately. Signs include: chest pain, difficulty breathing, severe bleeding, loss of consciousness, severe allergic reactions.",
			Tags:        []string{"emergency", "911", "critical"},
			Priority:    1,
			LastUpdated: now,
		},
		{
			ID:          "offline-emergency-2",
			Title:       "CPR Instructions",
			Category:    CategoryEmergency,
			Content:     "1. Check responsiveness and breathing. 2. Call 911. 3. Position hands on center of chest. 4. Push hard and fast at least 2 inches deep. 5. Give 30 compressions then 2 rescue breaths. 6. Repeat until help arrives.",
			Tags:        []string{"cpr", "emergency", "cardiac"},
			Priority:    1,
			LastUpdated: now,
		},
		{
			ID:          "offline-first-aid-1",
			Title:       "Severe Bleeding Control",
			Category:    CategoryFirstAid,
			Content:     "1. Apply direct pressure with clean cloth. 2. Elevate injured area above heart if possible. 3. Apply pressure bandage. 4. If bleeding continues, apply pressure to pressure points. 5. Seek immediate medical attention.",
			Tags:        []string{"bleeding", "first-aid", "emergency"},
			Priority:    1,
			LastUpdated: now,
		},
	}
}
