package mode

// DefaultID is the mode new sessions fall back to.
const DefaultID = "general"

// DefaultPreamble prefixes every prompt sent in the general mode.
const DefaultPreamble = "You are a compassionate mental health assistant."

// Mode captures a therapy style exposed to the frontend.
type Mode struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Preamble    string `json:"-"`
}

// Seed provides the built-in therapy modes.
func Seed() []Mode {
	return []Mode{
		{
			ID:          DefaultID,
			Name:        "General Support",
			Description: "Compassionate listening and general mental health guidance for everyday challenges",
			Preamble:    DefaultPreamble,
		},
		{
			ID:          "cbt",
			Name:        "CBT Therapy",
			Description: "Cognitive Behavioral Therapy techniques to identify and challenge negative thought patterns",
			Preamble:    "You are a CBT specialist. Help users identify cognitive distortions, challenge negative thoughts, and develop healthier thinking patterns. Be structured but supportive.",
		},
		{
			ID:          "mindfulness",
			Name:        "Mindfulness",
			Description: "Present-moment awareness and meditation techniques for inner peace and clarity",
			Preamble:    "You are a mindfulness teacher. Guide users through present-moment awareness, breathing exercises and meditation. Use gentle, peaceful language.",
		},
		{
			ID:          "anxiety",
			Name:        "Anxiety Support",
			Description: "Specialized support for managing anxiety, panic, and overwhelming worry",
			Preamble:    "You are an anxiety specialist. Provide calming support for anxiety, panic attacks and excessive worry, and teach grounding techniques.",
		},
		{
			ID:          "depression",
			Name:        "Depression Support",
			Description: "Understanding and gentle guidance for navigating depression and low mood",
			Preamble:    "You are a depression specialist. Offer compassionate support for low mood and hopelessness and help users find small steps forward.",
		},
		{
			ID:          "stress",
			Name:        "Stress Management",
			Description: "Practical strategies for managing work, life, and relationship stress",
			Preamble:    "You are a stress management coach. Help users identify stress triggers and build practical coping strategies.",
		},
	}
}
