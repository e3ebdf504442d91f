package model

// Difficulty grades a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known difficulty levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a single interview question as served by the question bank.
type Question struct {
	ID         string     `json:"id"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Text       string     `json:"text"`
	Context    string     `json:"context,omitempty"`
}

// PersonalizedQuestionsRequest asks the question bank for a tailored set.
type PersonalizedQuestionsRequest struct {
	Interests  []string `json:"interests"`
	SkillLevel string   `json:"skill_level"`
	Count      int      `json:"num_questions"`
}
